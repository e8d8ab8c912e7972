package evaluator

import (
	"strings"
	"time"

	"github.com/raphaelgruber/jobsurfer/internal/metrics"
	"github.com/raphaelgruber/jobsurfer/internal/models"
)

// termWeight is how much each distinct matched relevance term adds to
// the prefilter score.
const termWeight = 0.15

// PrefilterResult is the outcome of the cheap deterministic check that
// bounds how much content reaches model scoring.
type PrefilterResult struct {
	Pass     bool
	Score    float64
	Language string
}

// Prefilter scores a chunk with language-selected keyword lists. Fully
// deterministic: identical input always yields the identical result.
// A reject term fails the chunk outright.
func (e *Evaluator) Prefilter(chunk models.ContentChunk) PrefilterResult {
	start := time.Now()
	defer func() {
		e.collector.RecordTiming(metrics.OpPrefilter, time.Since(start))
	}()

	lang := e.detectLanguage(chunk.Content)
	terms := e.languages[lang]
	lower := strings.ToLower(chunk.Content)

	for _, reject := range terms.RejectTerms {
		if strings.Contains(lower, strings.ToLower(reject)) {
			return PrefilterResult{Pass: false, Score: 0, Language: lang}
		}
	}

	distinct := 0
	for _, term := range terms.RelevanceTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			distinct++
		}
	}

	score := float64(distinct) * termWeight
	if score > 1 {
		score = 1
	}

	return PrefilterResult{
		Pass:     score >= e.prefilterThreshold,
		Score:    score,
		Language: lang,
	}
}

// tierFor maps a prefilter score onto the model tier that scores it:
// inside the escalation band the cheap scorer is too unreliable, so the
// advanced tier takes over.
func (e *Evaluator) tierFor(prefilterScore float64) string {
	if prefilterScore >= e.bandLow && prefilterScore < e.bandHigh {
		return e.advancedTier
	}
	return e.fastTier
}
