package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/raphaelgruber/jobsurfer/internal/config"
	"github.com/raphaelgruber/jobsurfer/internal/llm"
	"github.com/raphaelgruber/jobsurfer/internal/metrics"
	"github.com/raphaelgruber/jobsurfer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator returns canned output and records which tier was used.
type fakeGenerator struct {
	output string
	err    error
	calls  []string
}

func (f *fakeGenerator) Generate(_ context.Context, tier, _, _ string) (string, llm.Usage, error) {
	f.calls = append(f.calls, tier)
	if f.err != nil {
		return "", llm.Usage{}, f.err
	}
	return f.output, llm.Usage{InputTokens: 100, OutputTokens: 20}, nil
}

func newEvaluator(t *testing.T, gen llm.Generator) (*Evaluator, *metrics.Collector) {
	t.Helper()
	collector := metrics.NewCollector()
	e := New(config.Default(), gen, collector, slog.New(slog.DiscardHandler))
	return e, collector
}

func chunkOf(content string) models.ContentChunk {
	return models.ContentChunk{
		SourceURL: "https://acme.example/careers",
		Content:   content,
		Class:     models.ChunkListing,
	}
}

func TestPrefilter_Deterministic(t *testing.T) {
	e, _ := newEvaluator(t, &fakeGenerator{})

	chunk := chunkOf("We are hiring an interim manager for the transformation project. Apply now for this position.")

	first := e.Prefilter(chunk)
	for i := 0; i < 5; i++ {
		got := e.Prefilter(chunk)
		assert.Equal(t, first, got, "call %d", i)
	}
	assert.True(t, first.Pass)
	assert.Equal(t, "en", first.Language)
	assert.GreaterOrEqual(t, first.Score, 0.0)
	assert.LessOrEqual(t, first.Score, 1.0)
}

func TestPrefilter_RejectTermsFail(t *testing.T) {
	e, _ := newEvaluator(t, &fakeGenerator{})

	tests := []struct {
		name    string
		content string
		lang    string
	}{
		{"english internship", "Internship position for students, apply for the job now", "en"},
		{"german azubi", "Wir suchen Auszubildende für die Stelle und die Bewerbung", "de"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Prefilter(chunkOf(tt.content))
			assert.False(t, res.Pass)
			assert.Equal(t, 0.0, res.Score)
			assert.Equal(t, tt.lang, res.Language)
		})
	}
}

func TestPrefilter_NoTerminologyFails(t *testing.T) {
	e, _ := newEvaluator(t, &fakeGenerator{})

	res := e.Prefilter(chunkOf("The weather was nice and we went to the lake."))
	assert.False(t, res.Pass)
}

func TestPrefilter_GermanDetection(t *testing.T) {
	e, _ := newEvaluator(t, &fakeGenerator{})

	res := e.Prefilter(chunkOf("Wir suchen eine Führungskraft für die Leitung der Restrukturierung. Die Stelle ist als Interim Mandat mit Projektverantwortung ausgelegt."))
	assert.Equal(t, "de", res.Language)
	assert.True(t, res.Pass)
}

func TestEvaluate_TierSelectionByBand(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		wantTier string
	}{
		{"below band stays fast", 0.15, config.TierFast},
		{"inside band escalates", 0.45, config.TierAdvanced},
		{"band low edge escalates", 0.3, config.TierAdvanced},
		{"band high edge stays fast", 0.7, config.TierFast},
		{"above band stays fast", 0.9, config.TierFast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{output: `{"relevance_score": 4, "title": "Interim Manager", "reason": "senior"}`}
			e, _ := newEvaluator(t, gen)

			pre := PrefilterResult{Pass: true, Score: tt.score, Language: "en"}
			_, err := e.Evaluate(context.Background(), chunkOf("content"), pre)
			require.NoError(t, err)
			require.Len(t, gen.calls, 1)
			assert.Equal(t, tt.wantTier, gen.calls[0])
		})
	}
}

func TestEvaluate_VerdictFromScore(t *testing.T) {
	tests := []struct {
		raw     int
		verdict models.Verdict
	}{
		{5, models.VerdictRelevant},
		{4, models.VerdictRelevant},
		{3, models.VerdictRelevant}, // 0.6 meets the default threshold
		{2, models.VerdictUncertain},
		{1, models.VerdictIrrelevant},
		{0, models.VerdictIrrelevant},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("raw_%d", tt.raw), func(t *testing.T) {
			gen := &fakeGenerator{output: fmt.Sprintf(`{"relevance_score": %d, "title": "T"}`, tt.raw)}
			e, _ := newEvaluator(t, gen)

			cand, err := e.Evaluate(context.Background(), chunkOf("content"), PrefilterResult{Pass: true, Score: 0.2, Language: "en"})
			require.NoError(t, err)
			assert.Equal(t, tt.verdict, cand.Verdict)
			assert.GreaterOrEqual(t, cand.Score, 0.0)
			assert.LessOrEqual(t, cand.Score, 1.0)
		})
	}
}

func TestEvaluate_IdempotentUnderDeterministicBackend(t *testing.T) {
	gen := &fakeGenerator{output: `{"relevance_score": 4, "title": "Interim Manager"}`}
	e, _ := newEvaluator(t, gen)

	chunk := chunkOf("Interim Manager position, senior transformation lead")
	pre := e.Prefilter(chunk)

	first, err := e.Evaluate(context.Background(), chunk, pre)
	require.NoError(t, err)
	second, err := e.Evaluate(context.Background(), chunk, pre)
	require.NoError(t, err)

	assert.Equal(t, first.Verdict, second.Verdict)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Tier, second.Tier)
}

func TestEvaluate_ModelUnavailableMarksUnevaluated(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("%w: boom", llm.ErrModelUnavailable)}
	e, _ := newEvaluator(t, gen)

	cand, err := e.Evaluate(context.Background(), chunkOf("content"), PrefilterResult{Pass: true, Score: 0.2, Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, models.VerdictUnevaluated, cand.Verdict)
}

func TestEvaluate_GarbageOutputMarksUnevaluated(t *testing.T) {
	gen := &fakeGenerator{output: "I could not find anything useful."}
	e, _ := newEvaluator(t, gen)

	cand, err := e.Evaluate(context.Background(), chunkOf("content"), PrefilterResult{Pass: true, Score: 0.2, Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, models.VerdictUnevaluated, cand.Verdict)
}

func TestEvaluate_RecordsCost(t *testing.T) {
	gen := &fakeGenerator{output: `{"relevance_score": 4, "title": "T"}`}
	e, collector := newEvaluator(t, gen)

	_, err := e.Evaluate(context.Background(), chunkOf("content"), PrefilterResult{Pass: true, Score: 0.2, Language: "en"})
	require.NoError(t, err)
	assert.Greater(t, collector.TotalCost(), 0.0)
}
