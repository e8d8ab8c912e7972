// Package config loads and validates jobsurfer configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LLM provider names.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Model tier names. The fast tier handles the bulk of evaluations; the
// advanced tier only scores candidates inside the escalation band.
const (
	TierFast     = "fast"
	TierAdvanced = "advanced"
)

// Duration wraps time.Duration so YAML values like "20s" decode.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LanguageConfig holds per-language terminology used by the prefilter
// and the language-specific evaluation prompts.
type LanguageConfig struct {
	// DetectionWords are common function words used to tag chunk
	// language by occurrence count.
	DetectionWords []string `yaml:"detection_words"`

	// RelevanceTerms indicate listing-like, role-relevant content.
	RelevanceTerms []string `yaml:"relevance_terms"`

	// RejectTerms immediately fail the prefilter (internships,
	// apprenticeships and other out-of-profile postings).
	RejectTerms []string `yaml:"reject_terms"`

	// Criteria is the language-specific scoring guidance injected into
	// the evaluation prompt.
	Criteria string `yaml:"criteria"`
}

// TierConfig configures one model tier.
type TierConfig struct {
	Model string `yaml:"model"`

	// PricePer1K is the cost per 1000 tokens, used for budget
	// accounting.
	PricePer1K float64 `yaml:"price_per_1k"`
}

// Config holds all configuration values.
type Config struct {
	// Seeds are the starting URLs for a session.
	Seeds []string `yaml:"seeds"`

	// RoleProfile describes the kind of position being searched for; it
	// is embedded in evaluation prompts.
	RoleProfile string `yaml:"role_profile"`

	// Languages maps language codes to terminology. At least one entry
	// is required; the first code in LanguageOrder is the fallback.
	Languages     map[string]LanguageConfig `yaml:"languages"`
	LanguageOrder []string                  `yaml:"language_order"`

	// LLM backend.
	LLMProvider     string                `yaml:"llm_provider"`
	OllamaHost      string                `yaml:"ollama_host"`
	OpenAIAPIKey    string                `yaml:"-"`
	AnthropicAPIKey string                `yaml:"-"`
	Tiers           map[string]TierConfig `yaml:"tiers"`

	// Relevance thresholds on the [0,1] score scale.
	RelevantThreshold   float64 `yaml:"relevant_threshold"`
	IrrelevantThreshold float64 `yaml:"irrelevant_threshold"`

	// PrefilterThreshold is the minimum prefilter score for a chunk to
	// reach model scoring at all.
	PrefilterThreshold float64 `yaml:"prefilter_threshold"`

	// Escalation band: prefilter scores in [BandLow, BandHigh) are
	// scored by the advanced tier, everything else by the fast tier.
	BandLow  float64 `yaml:"band_low"`
	BandHigh float64 `yaml:"band_high"`

	// Session bounds.
	MaxVisits             int     `yaml:"max_visits"`
	SatisfactionThreshold int     `yaml:"satisfaction_threshold"`
	MaxDepth              int     `yaml:"max_depth"`
	BudgetCap             float64 `yaml:"budget_cap"`
	MaxCandidatesPerSite  int     `yaml:"max_candidates_per_site"`
	MaxCandidatesTotal    int     `yaml:"max_candidates_total"`

	// FailureRateCutoff ends the session early once the failed-visit
	// share exceeds it (checked after FailureRateMinVisits visits).
	// Zero disables the cutoff.
	FailureRateCutoff    float64 `yaml:"failure_rate_cutoff"`
	FailureRateMinVisits int     `yaml:"failure_rate_min_visits"`

	// Explorer policy.
	ExploreWeight    float64 `yaml:"explore_weight"`
	ListingPathBonus float64 `yaml:"listing_path_bonus"`
	// LowSuccessFloor deprioritizes sites whose success rate fell below
	// it (a fixed penalty, never a hard drop).
	LowSuccessFloor float64 `yaml:"low_success_floor"`

	// Memory.
	MemoryFile      string  `yaml:"memory_file"`
	MemoryDecay     float64 `yaml:"memory_decay"`
	MaxListingPaths int     `yaml:"max_listing_paths"`

	// Navigator.
	MaxChunkSize   int `yaml:"max_chunk_size"`
	ChunkThreshold int `yaml:"chunk_threshold"`
	MinChunkSize   int `yaml:"min_chunk_size"`

	// Fetching.
	FetchTimeout   Duration `yaml:"fetch_timeout"`
	SessionTimeout Duration `yaml:"session_timeout"`
	UserAgent      string   `yaml:"user_agent"`

	// Logging.
	LogFile      string     `yaml:"log_file"`
	LogLevel     slog.Level `yaml:"-"`
	LogLevelName string     `yaml:"log_level"`
}

// Default returns the built-in configuration. Every knob can be
// overridden by file, environment or flags.
func Default() Config {
	return Config{
		RoleProfile: "senior interim management positions: project leadership, transformation, restructuring",
		Languages: map[string]LanguageConfig{
			"en": {
				DetectionWords: []string{"the", "and", "with", "for", "our", "you", "are"},
				RelevanceTerms: []string{"job", "jobs", "career", "careers", "vacancy", "vacancies", "position", "opening", "interim", "manager", "director", "head of", "lead", "apply"},
				RejectTerms:    []string{"internship", "trainee", "junior", "working student", "apprentice"},
				Criteria:       "Score senior, project-oriented leadership roles highly; temporary or interim mandates highest. Entry-level and support roles score near zero.",
			},
			"de": {
				DetectionWords: []string{"der", "die", "das", "und", "mit", "für", "wir", "sie"},
				RelevanceTerms: []string{"stellenangebote", "karriere", "offene stellen", "bewerbung", "vakanzen", "stelle", "interim", "projektleiter", "führungskraft", "leitung", "bereichsleiter"},
				RejectTerms:    []string{"auszubildende", "azubi", "praktikum", "werkstudent", "duales studium", "trainee", "junior"},
				Criteria:       "Bewerte Führungspositionen mit Projekt- oder Transformationsverantwortung hoch; Interim- und befristete Mandate am höchsten. Einstiegspositionen nahe null.",
			},
		},
		LanguageOrder: []string{"en", "de"},

		LLMProvider: ProviderOllama,
		OllamaHost:  "http://localhost:11434",
		Tiers: map[string]TierConfig{
			TierFast:     {Model: "llama3.2", PricePer1K: 0.0002},
			TierAdvanced: {Model: "llama3.1:70b", PricePer1K: 0.003},
		},

		RelevantThreshold:   0.6,
		IrrelevantThreshold: 0.3,
		PrefilterThreshold:  0.15,
		BandLow:             0.3,
		BandHigh:            0.7,

		MaxVisits:             20,
		SatisfactionThreshold: 10,
		MaxDepth:              3,
		BudgetCap:             2.0,
		MaxCandidatesPerSite:  5,
		MaxCandidatesTotal:    30,
		FailureRateCutoff:     0.8,
		FailureRateMinVisits:  5,

		ExploreWeight:    0.3,
		ListingPathBonus: 0.2,
		LowSuccessFloor:  0.2,

		MemoryFile:      "jobsurfer_memory.json",
		MemoryDecay:     0.3,
		MaxListingPaths: 10,

		MaxChunkSize:   4000,
		ChunkThreshold: 4000,
		MinChunkSize:   200,

		FetchTimeout:   Duration(20 * time.Second),
		SessionTimeout: Duration(30 * time.Minute),
		UserAgent:      "jobsurfer/0.1",

		LogFile:      "jobsurfer.log",
		LogLevel:     slog.LevelInfo,
		LogLevelName: "INFO",
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (optional when path is empty), then environment variables. Validation
// failures are fatal at startup.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables. API keys only come from the
// environment, never from the config file.
func applyEnv(cfg *Config) {
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")

	if v := os.Getenv("JOBSURFER_LLM_PROVIDER"); v != "" {
		cfg.LLMProvider = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.OllamaHost = v
	}
	if v := os.Getenv("JOBSURFER_MEMORY_FILE"); v != "" {
		cfg.MemoryFile = v
	}
	if v := os.Getenv("JOBSURFER_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("JOBSURFER_LOG_LEVEL"); v != "" {
		cfg.LogLevelName = v
	}
}

// Validate checks invariants that would otherwise surface mid-session.
func (c Config) Validate() error {
	if len(c.Languages) == 0 {
		return fmt.Errorf("config: at least one language required")
	}
	if len(c.LanguageOrder) == 0 {
		return fmt.Errorf("config: language_order required")
	}
	for _, code := range c.LanguageOrder {
		if _, ok := c.Languages[code]; !ok {
			return fmt.Errorf("config: language_order entry %q has no languages section", code)
		}
	}
	if c.MaxVisits <= 0 {
		return fmt.Errorf("config: max_visits must be positive, got %d", c.MaxVisits)
	}
	if c.SatisfactionThreshold <= 0 {
		return fmt.Errorf("config: satisfaction_threshold must be positive, got %d", c.SatisfactionThreshold)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("config: max_depth must be non-negative, got %d", c.MaxDepth)
	}
	if c.ExploreWeight < 0 || c.ExploreWeight > 1 {
		return fmt.Errorf("config: explore_weight must be in [0,1], got %g", c.ExploreWeight)
	}
	if c.MemoryDecay <= 0 || c.MemoryDecay > 1 {
		return fmt.Errorf("config: memory_decay must be in (0,1], got %g", c.MemoryDecay)
	}
	if c.BandLow > c.BandHigh {
		return fmt.Errorf("config: band_low %g exceeds band_high %g", c.BandLow, c.BandHigh)
	}
	for _, b := range []float64{c.RelevantThreshold, c.IrrelevantThreshold, c.PrefilterThreshold, c.BandLow, c.BandHigh} {
		if b < 0 || b > 1 {
			return fmt.Errorf("config: thresholds must be in [0,1], got %g", b)
		}
	}
	if c.IrrelevantThreshold > c.RelevantThreshold {
		return fmt.Errorf("config: irrelevant_threshold %g exceeds relevant_threshold %g", c.IrrelevantThreshold, c.RelevantThreshold)
	}
	if c.BudgetCap <= 0 {
		return fmt.Errorf("config: budget_cap must be positive, got %g", c.BudgetCap)
	}
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("config: max_chunk_size must be positive, got %d", c.MaxChunkSize)
	}
	if _, ok := c.Tiers[TierFast]; !ok {
		return fmt.Errorf("config: tiers must define %q", TierFast)
	}
	if _, ok := c.Tiers[TierAdvanced]; !ok {
		return fmt.Errorf("config: tiers must define %q", TierAdvanced)
	}
	switch c.LLMProvider {
	case ProviderOllama, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("config: unsupported llm_provider %q", c.LLMProvider)
	}
	return nil
}

// FallbackLanguage returns the first configured language code.
func (c Config) FallbackLanguage() string {
	return c.LanguageOrder[0]
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
