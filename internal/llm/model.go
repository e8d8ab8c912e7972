// Package llm wraps langchaingo models behind a tiered text-generation
// interface.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/jobsurfer/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Usage reports token consumption of one generation call. When the
// backend does not report usage, tokens are estimated at four
// characters per token.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Generator produces a completion on a named model tier.
type Generator interface {
	Generate(ctx context.Context, tier, systemPrompt, userPrompt string) (string, Usage, error)
}

// Retry policy for transient backend failures.
const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// Tiered routes generation calls to per-tier langchaingo models.
type Tiered struct {
	clients map[string]llms.Model
	names   map[string]string
	log     *slog.Logger

	sleep func(time.Duration) // injectable for tests
}

// NewTiered creates one client per configured tier using the
// configured provider.
func NewTiered(cfg config.Config, log *slog.Logger) (*Tiered, error) {
	t := &Tiered{
		clients: make(map[string]llms.Model, len(cfg.Tiers)),
		names:   make(map[string]string, len(cfg.Tiers)),
		log:     log,
		sleep:   time.Sleep,
	}

	for tier, tc := range cfg.Tiers {
		model, err := newClient(cfg, tc.Model)
		if err != nil {
			return nil, fmt.Errorf("tier %s: %w", tier, err)
		}
		t.clients[tier] = model
		t.names[tier] = tc.Model
	}

	return t, nil
}

func newClient(cfg config.Config, modelName string) (llms.Model, error) {
	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err := ollama.New(
			ollama.WithModel(modelName),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}
		return model, nil

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err := openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		return model, nil

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err := anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}
		return model, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}

// ModelName returns the configured model for a tier.
func (t *Tiered) ModelName(tier string) string {
	return t.names[tier]
}

// Generate runs a system+user prompt on the given tier, retrying
// transient failures with doubling backoff. After exhausted retries it
// returns an error wrapping ErrModelUnavailable.
func (t *Tiered) Generate(ctx context.Context, tier, systemPrompt, userPrompt string) (string, Usage, error) {
	model, ok := t.clients[tier]
	if !ok {
		return "", Usage{}, fmt.Errorf("unknown model tier %q", tier)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		response, err := model.GenerateContent(ctx, messages, llms.WithTemperature(0))
		if err == nil && len(response.Choices) > 0 {
			content := response.Choices[0].Content
			return content, usageFor(systemPrompt+userPrompt, content), nil
		}
		if err == nil {
			err = fmt.Errorf("no response choices")
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", Usage{}, ctx.Err()
		}
		if attempt < maxAttempts {
			t.log.Warn("model call failed, retrying",
				"tier", tier, "attempt", attempt, "error", err)
			t.sleep(backoff)
			backoff *= 2
		}
	}

	return "", Usage{}, fmt.Errorf("%w: tier %s: %v", ErrModelUnavailable, tier, lastErr)
}

// usageFor estimates tokens at four characters per token.
func usageFor(prompt, completion string) Usage {
	return Usage{
		InputTokens:  int64(len(prompt) / 4),
		OutputTokens: int64(len(completion) / 4),
	}
}
