package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/raphaelgruber/jobsurfer/internal/config"
	"github.com/raphaelgruber/jobsurfer/internal/evaluator"
	"github.com/raphaelgruber/jobsurfer/internal/explorer"
	"github.com/raphaelgruber/jobsurfer/internal/metrics"
	"github.com/raphaelgruber/jobsurfer/internal/models"
	"github.com/raphaelgruber/jobsurfer/internal/navigator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves canned pages; URLs in fail get an error on every
// attempt, and attempts are counted.
type fakeFetcher struct {
	pages    map[string]string
	fail     map[string]bool
	attempts map[string]int
	delay    time.Duration
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	if f.attempts == nil {
		f.attempts = make(map[string]int)
	}
	f.attempts[url]++
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail[url] {
		return "", fmt.Errorf("fetch %s: connection refused", url)
	}
	page, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("fetch %s: not found", url)
	}
	return page, nil
}

// fakeAnalyzer parses the toy page format used in these tests:
// "links:a,b|chunks:text;text". Listing class for every chunk.
type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(rawContent, pageURL string) navigator.Result {
	res := navigator.Result{Fingerprint: "fp-" + models.SiteID(pageURL)}
	for _, part := range strings.Split(rawContent, "|") {
		switch {
		case strings.HasPrefix(part, "links:"):
			for _, l := range strings.Split(strings.TrimPrefix(part, "links:"), ",") {
				if l != "" {
					res.Links = append(res.Links, l)
				}
			}
		case strings.HasPrefix(part, "chunks:"):
			for i, cnt := range strings.Split(strings.TrimPrefix(part, "chunks:"), ";") {
				if cnt == "" {
					continue
				}
				res.Chunks = append(res.Chunks, models.ContentChunk{
					SourceURL: pageURL,
					Index:     i,
					Content:   cnt,
					Class:     models.ChunkListing,
				})
			}
		}
	}
	return res
}

// fakeScorer passes chunks containing "job" and marks chunks containing
// "interim" relevant. Records a fixed cost per model call.
type fakeScorer struct {
	collector   *metrics.Collector
	costPerCall float64
}

func (s *fakeScorer) Prefilter(chunk models.ContentChunk) evaluator.PrefilterResult {
	pass := strings.Contains(chunk.Content, "job")
	return evaluator.PrefilterResult{Pass: pass, Score: 0.2, Language: "en"}
}

func (s *fakeScorer) Evaluate(_ context.Context, chunk models.ContentChunk, pre evaluator.PrefilterResult) (models.JobCandidate, error) {
	if s.costPerCall > 0 {
		s.collector.RecordModelUsage(metrics.OpEvaluateFast, time.Millisecond, 100, 20, s.costPerCall)
	}
	cand := models.JobCandidate{
		Title:     chunk.Content,
		SourceURL: chunk.SourceURL,
		Language:  pre.Language,
		Tier:      config.TierFast,
	}
	if strings.Contains(chunk.Content, "interim") {
		cand.Score = 0.8
		cand.Verdict = models.VerdictRelevant
	} else {
		cand.Score = 0.1
		cand.Verdict = models.VerdictIrrelevant
	}
	return cand, nil
}

// recordingMemory captures writes and optionally fails Save.
type recordingMemory struct {
	visits  map[string][]models.VisitOutcome
	saveErr error
	saved   bool
}

func newRecordingMemory() *recordingMemory {
	return &recordingMemory{visits: make(map[string][]models.VisitOutcome)}
}

func (m *recordingMemory) Query(string) *models.SiteRecord { return nil }

func (m *recordingMemory) RecordVisit(siteID string, outcome models.VisitOutcome) {
	m.visits[siteID] = append(m.visits[siteID], outcome)
}

func (m *recordingMemory) Save(string) error {
	m.saved = true
	return m.saveErr
}

type harness struct {
	cfg       config.Config
	fetcher   *fakeFetcher
	memory    *recordingMemory
	collector *metrics.Collector
	scorer    *fakeScorer
}

func newHarness(pages map[string]string) *harness {
	cfg := config.Default()
	cfg.MemoryFile = "unused.json"
	collector := metrics.NewCollector()
	return &harness{
		cfg:       cfg,
		fetcher:   &fakeFetcher{pages: pages, fail: make(map[string]bool)},
		memory:    newRecordingMemory(),
		collector: collector,
		scorer:    &fakeScorer{collector: collector},
	}
}

func (h *harness) run(t *testing.T, seeds ...string) (*models.SearchSession, error) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	frontier := explorer.New(explorer.Options{
		ExploreWeight:    h.cfg.ExploreWeight,
		ListingPathBonus: h.cfg.ListingPathBonus,
		LowSuccessFloor:  h.cfg.LowSuccessFloor,
		MaxDepth:         h.cfg.MaxDepth,
	}, h.memory, log)

	c := New(h.cfg, h.fetcher, fakeAnalyzer{}, h.scorer, frontier, h.memory, h.collector, log)
	return c.Run(context.Background(), seeds)
}

func TestRun_MaxVisitsBound(t *testing.T) {
	h := newHarness(map[string]string{
		"https://a.example":   "links:https://a.example/1,https://a.example/2,https://a.example/3|chunks:",
		"https://a.example/1": "links:https://a.example/4,https://a.example/5|chunks:",
		"https://a.example/2": "chunks:",
		"https://a.example/3": "chunks:",
		"https://a.example/4": "chunks:",
		"https://a.example/5": "chunks:",
	})

	h.cfg.MaxVisits = 5

	session, err := h.run(t, "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, models.TerminationMaxVisits, session.Reason)
	assert.Equal(t, 5, session.Visited)
	assert.False(t, session.Reason.Fatal())
}

func TestRun_FrontierExhausted(t *testing.T) {
	h := newHarness(map[string]string{
		"https://a.example":      "links:https://a.example/jobs|chunks:",
		"https://a.example/jobs": "chunks:",
	})

	session, err := h.run(t, "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, models.TerminationFrontier, session.Reason)
	assert.Equal(t, 2, session.Visited)
}

func TestRun_SatisfactionThreshold(t *testing.T) {
	h := newHarness(map[string]string{
		"https://a.example": "chunks:interim manager job;interim director job;plain text",
	})
	h.cfg.SatisfactionThreshold = 2

	session, err := h.run(t, "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, models.TerminationSatisfied, session.Reason)
	assert.Equal(t, 2, session.Relevant)
	assert.Len(t, session.Candidates, 2)
}

func TestRun_BudgetExhausted(t *testing.T) {
	h := newHarness(map[string]string{
		"https://a.example": "links:https://b.example|chunks:interim job",
		"https://b.example": "chunks:interim job",
	})
	h.cfg.BudgetCap = 0.05
	h.scorer.costPerCall = 0.06

	session, err := h.run(t, "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, models.TerminationBudget, session.Reason)
	assert.Equal(t, 1, session.Visited)
	assert.GreaterOrEqual(t, session.Cost, h.cfg.BudgetCap)
}

func TestRun_FetchFailureContinuesSession(t *testing.T) {
	h := newHarness(map[string]string{
		"https://a.example": "links:https://b.example,https://c.example|chunks:",
		"https://c.example": "chunks:interim job",
	})
	h.fetcher.fail["https://b.example"] = true
	h.cfg.SatisfactionThreshold = 1

	session, err := h.run(t, "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, models.TerminationSatisfied, session.Reason)
	assert.Equal(t, 1, session.FailedVisits)
	assert.Equal(t, 1, session.Relevant)

	// One immediate retry for the failing URL.
	assert.Equal(t, 2, h.fetcher.attempts["https://b.example"])

	// The failure reached memory as an unsuccessful outcome.
	require.Len(t, h.memory.visits["b.example"], 1)
	assert.False(t, h.memory.visits["b.example"][0].Success)
}

func TestRun_FailureRateCutoff(t *testing.T) {
	pages := map[string]string{}
	h := newHarness(pages)
	seeds := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		u := fmt.Sprintf("https://s%d.example", i)
		h.fetcher.fail[u] = true
		seeds = append(seeds, u)
	}
	h.cfg.FailureRateCutoff = 0.5
	h.cfg.FailureRateMinVisits = 3

	session, err := h.run(t, seeds...)
	require.NoError(t, err)
	assert.Equal(t, models.TerminationFailureRate, session.Reason)
	assert.False(t, session.Reason.Fatal())
	assert.Equal(t, 3, session.Visited)
	assert.Equal(t, 3, session.FailedVisits)
}

func TestRun_PerSiteQuotaBoundsYield(t *testing.T) {
	h := newHarness(map[string]string{
		"https://a.example": "chunks:interim job 1;interim job 2;interim job 3;interim job 4",
	})
	h.cfg.MaxCandidatesPerSite = 2
	h.cfg.SatisfactionThreshold = 10

	session, err := h.run(t, "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, 2, session.Relevant)

	// Memory sees the capped yield and the visited listing path.
	require.Len(t, h.memory.visits["a.example"], 1)
	outcome := h.memory.visits["a.example"][0]
	assert.True(t, outcome.Success)
	assert.Equal(t, 2, outcome.YieldCount)
	assert.Equal(t, "/", outcome.ListingPath)
	assert.Equal(t, "fp-a.example", outcome.Fingerprint)
}

func TestRun_MemorySaveFailureKeepsResults(t *testing.T) {
	h := newHarness(map[string]string{
		"https://a.example": "chunks:interim job",
	})
	h.memory.saveErr = fmt.Errorf("disk full")
	h.cfg.SatisfactionThreshold = 1

	session, err := h.run(t, "https://a.example")
	require.Error(t, err)
	require.NotNil(t, session)
	assert.Equal(t, models.TerminationSatisfied, session.Reason)
	assert.Equal(t, 1, session.Relevant)
	assert.True(t, h.memory.saved)
}

func TestRun_NoUsableSeedsIsFatal(t *testing.T) {
	h := newHarness(nil)

	session, err := h.run(t, "ftp://nope.example", "::::")
	require.Error(t, err)
	assert.Equal(t, models.TerminationFatal, session.Reason)
	assert.True(t, session.Reason.Fatal())
}

func TestRun_CancelKeepsResults(t *testing.T) {
	h := newHarness(map[string]string{
		"https://a.example": "chunks:interim job",
	})

	log := slog.New(slog.DiscardHandler)
	frontier := explorer.New(explorer.Options{MaxDepth: 3}, h.memory, log)
	c := New(h.cfg, h.fetcher, fakeAnalyzer{}, h.scorer, frontier, h.memory, h.collector, log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session, err := c.Run(ctx, []string{"https://a.example"})
	require.NoError(t, err)
	assert.Equal(t, models.TerminationCancelled, session.Reason)
	assert.False(t, session.Reason.Fatal())
	assert.True(t, h.memory.saved)
}

func TestRun_SessionTimeoutReportsBudget(t *testing.T) {
	h := newHarness(map[string]string{
		"https://a.example": "links:https://b.example|chunks:",
		"https://b.example": "chunks:",
	})
	h.cfg.SessionTimeout = config.Duration(time.Millisecond)
	h.fetcher.delay = 50 * time.Millisecond

	session, err := h.run(t, "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, models.TerminationBudget, session.Reason)
	assert.LessOrEqual(t, session.Visited, 1)
}
