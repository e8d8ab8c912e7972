// Package evaluator scores content fragments for relevance under a
// cost-tiered cascade: a deterministic keyword prefilter, a fast model
// tier for the bulk, and an advanced tier for the escalation band.
// Stateless per call.
package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raphaelgruber/jobsurfer/internal/config"
	"github.com/raphaelgruber/jobsurfer/internal/llm"
	"github.com/raphaelgruber/jobsurfer/internal/metrics"
	"github.com/raphaelgruber/jobsurfer/internal/models"
)

// modelScale is the integer scale the prompt asks for; scores are
// normalized onto [0,1].
const modelScale = 5

const snippetLen = 200

// Evaluator scores chunks and candidates.
type Evaluator struct {
	generator llm.Generator
	collector *metrics.Collector
	log       *slog.Logger

	languages map[string]config.LanguageConfig
	order     []string
	fallback  string

	roleProfile        string
	prefilterThreshold float64
	bandLow, bandHigh  float64
	fastTier           string
	advancedTier       string
	prices             map[string]float64

	relevantThreshold   float64
	irrelevantThreshold float64
}

// New creates an Evaluator from configuration.
func New(cfg config.Config, generator llm.Generator, collector *metrics.Collector, log *slog.Logger) *Evaluator {
	prices := make(map[string]float64, len(cfg.Tiers))
	for tier, tc := range cfg.Tiers {
		prices[tier] = tc.PricePer1K
	}

	return &Evaluator{
		generator: generator,
		collector: collector,
		log:       log,

		languages: cfg.Languages,
		order:     cfg.LanguageOrder,
		fallback:  cfg.FallbackLanguage(),

		roleProfile:        cfg.RoleProfile,
		prefilterThreshold: cfg.PrefilterThreshold,
		bandLow:            cfg.BandLow,
		bandHigh:           cfg.BandHigh,
		fastTier:           config.TierFast,
		advancedTier:       config.TierAdvanced,
		prices:             prices,

		relevantThreshold:   cfg.RelevantThreshold,
		irrelevantThreshold: cfg.IrrelevantThreshold,
	}
}

// modelVerdict is the JSON shape the prompt requests.
type modelVerdict struct {
	RelevanceScore int    `json:"relevance_score"`
	Title          string `json:"title"`
	Reason         string `json:"reason"`
}

// Evaluate scores a prefiltered chunk on the tier its prefilter score
// selects. On exhausted model retries the candidate comes back with
// VerdictUnevaluated instead of an error aborting the session.
func (e *Evaluator) Evaluate(ctx context.Context, chunk models.ContentChunk, pre PrefilterResult) (models.JobCandidate, error) {
	tier := e.tierFor(pre.Score)

	candidate := models.JobCandidate{
		Title:     firstLine(chunk.Content),
		Snippet:   snippet(chunk.Content),
		SourceURL: chunk.SourceURL,
		Language:  pre.Language,
		Tier:      tier,
	}

	start := time.Now()
	output, usage, err := e.generator.Generate(ctx, tier, e.systemPrompt(pre.Language), userPrompt(chunk.SourceURL, chunk.Content))
	e.recordUsage(tier, time.Since(start), usage)

	if err != nil {
		if errors.Is(err, llm.ErrModelUnavailable) {
			e.log.Warn("candidate left unevaluated", "url", chunk.SourceURL, "error", err)
			candidate.Verdict = models.VerdictUnevaluated
			return candidate, nil
		}
		return candidate, fmt.Errorf("evaluate chunk: %w", err)
	}

	verdict, err := parseVerdict(output)
	if err != nil {
		e.log.Warn("unparseable model verdict", "url", chunk.SourceURL, "error", err)
		candidate.Verdict = models.VerdictUnevaluated
		return candidate, nil
	}

	if verdict.Title != "" {
		candidate.Title = verdict.Title
	}
	candidate.Score = normalizeScore(verdict.RelevanceScore)
	candidate.Verdict = models.VerdictFor(candidate.Score, e.relevantThreshold, e.irrelevantThreshold)

	return candidate, nil
}

func (e *Evaluator) recordUsage(tier string, elapsed time.Duration, usage llm.Usage) {
	op := metrics.OpEvaluateFast
	if tier == e.advancedTier {
		op = metrics.OpEvaluateAdv
	}
	cost := float64(usage.InputTokens+usage.OutputTokens) / 1000 * e.prices[tier]
	e.collector.RecordModelUsage(op, elapsed, usage.InputTokens, usage.OutputTokens, cost)
}

// parseVerdict extracts the first JSON object from model output, which
// often arrives wrapped in prose or code fences.
func parseVerdict(output string) (modelVerdict, error) {
	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start < 0 || end <= start {
		return modelVerdict{}, fmt.Errorf("no JSON object in model output")
	}

	var v modelVerdict
	if err := json.Unmarshal([]byte(output[start:end+1]), &v); err != nil {
		return modelVerdict{}, fmt.Errorf("decode model verdict: %w", err)
	}
	return v, nil
}

func normalizeScore(raw int) float64 {
	switch {
	case raw < 0:
		return 0
	case raw > modelScale:
		return 1
	default:
		return float64(raw) / modelScale
	}
}

func firstLine(content string) string {
	line := content
	if idx := strings.IndexAny(content, "\n."); idx > 0 {
		line = content[:idx]
	}
	return truncate(strings.TrimSpace(line), 80)
}

func snippet(content string) string {
	return truncate(strings.TrimSpace(content), snippetLen)
}

// truncate cuts at a rune boundary.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
