// Package coordinator runs the bounded search loop: pull the next URL
// from the Explorer, fetch it, hand the content to the Navigator,
// score listing chunks through the Evaluator and fold the outcome into
// Memory. It is the only writer of session state and of the memory
// store.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raphaelgruber/jobsurfer/internal/config"
	"github.com/raphaelgruber/jobsurfer/internal/evaluator"
	"github.com/raphaelgruber/jobsurfer/internal/explorer"
	"github.com/raphaelgruber/jobsurfer/internal/metrics"
	"github.com/raphaelgruber/jobsurfer/internal/models"
	"github.com/raphaelgruber/jobsurfer/internal/navigator"
)

// Fetcher retrieves page content.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// PageAnalyzer turns raw page content into chunks, links and a
// structural fingerprint.
type PageAnalyzer interface {
	Analyze(rawContent, pageURL string) navigator.Result
}

// CandidateScorer is the evaluation cascade.
type CandidateScorer interface {
	Prefilter(chunk models.ContentChunk) evaluator.PrefilterResult
	Evaluate(ctx context.Context, chunk models.ContentChunk, pre evaluator.PrefilterResult) (models.JobCandidate, error)
}

// Memory is the durable site store. The Coordinator is its only writer.
type Memory interface {
	Query(siteID string) *models.SiteRecord
	RecordVisit(siteID string, outcome models.VisitOutcome)
	Save(path string) error
}

// Progress is a point-in-time view of the running session, polled by
// the progress UI.
type Progress struct {
	Visited    int
	MaxVisits  int
	Relevant   int
	Failed     int
	Frontier   int
	Cost       float64
	BudgetCap  float64
	CurrentURL string
	Done       bool
}

// Coordinator drives one search session. Not reusable across sessions.
type Coordinator struct {
	cfg       config.Config
	fetcher   Fetcher
	nav       PageAnalyzer
	scorer    CandidateScorer
	frontier  *explorer.Explorer
	memory    Memory
	collector *metrics.Collector
	log       *slog.Logger

	mu       sync.Mutex
	progress Progress
}

// New wires a Coordinator for one session.
func New(cfg config.Config, fetcher Fetcher, nav PageAnalyzer, scorer CandidateScorer, frontier *explorer.Explorer, mem Memory, collector *metrics.Collector, log *slog.Logger) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		fetcher:   fetcher,
		nav:       nav,
		scorer:    scorer,
		frontier:  frontier,
		memory:    mem,
		collector: collector,
		log:       log,
	}
}

// Progress returns the current session snapshot.
func (c *Coordinator) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

func (c *Coordinator) updateProgress(session *models.SearchSession, currentURL string, done bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress = Progress{
		Visited:    session.Visited,
		MaxVisits:  c.cfg.MaxVisits,
		Relevant:   session.Relevant,
		Failed:     session.FailedVisits,
		Frontier:   c.frontier.Remaining(),
		Cost:       c.collector.TotalCost(),
		BudgetCap:  c.cfg.BudgetCap,
		CurrentURL: currentURL,
		Done:       done,
	}
}

// Run executes the session until one of the bounds fires. The returned
// session always carries a termination reason; the error is non-nil
// only for fatal aborts and for a failed final memory save, in which
// case the session results are still valid.
func (c *Coordinator) Run(ctx context.Context, seeds []string) (*models.SearchSession, error) {
	session := &models.SearchSession{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}

	if timeout := c.cfg.SessionTimeout.Std(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	accepted := 0
	for _, seed := range seeds {
		if c.frontier.Enqueue(seed, "", 0) {
			accepted++
		} else {
			c.log.Warn("seed rejected", "url", seed)
		}
	}
	if accepted == 0 {
		session.Reason = models.TerminationFatal
		c.finish(session)
		return session, fmt.Errorf("no usable seed URLs")
	}

	c.log.Info("session started", "id", session.ID, "seeds", accepted, "max_visits", c.cfg.MaxVisits, "budget", c.cfg.BudgetCap)

	for {
		if reason := c.checkBounds(ctx, session); reason != "" {
			session.Reason = reason
			break
		}

		item := c.frontier.SelectNext()
		if item == nil {
			session.Reason = models.TerminationFrontier
			break
		}

		c.updateProgress(session, item.URL, false)
		c.visit(ctx, session, item)
	}

	c.finish(session)
	c.log.Info("session finished", "id", session.ID, "reason", session.Reason,
		"visited", session.Visited, "relevant", session.Relevant, "cost", session.Cost)

	saveErr := c.saveMemory()
	if session.Reason.Fatal() {
		return session, fmt.Errorf("session aborted: %s", session.Reason)
	}
	return session, saveErr
}

// checkBounds returns the termination reason that applies before the
// next visit, or "" to continue. Order matters: satisfaction wins over
// the visit cap when both hold.
func (c *Coordinator) checkBounds(ctx context.Context, session *models.SearchSession) models.TerminationReason {
	if session.Relevant >= c.cfg.SatisfactionThreshold {
		return models.TerminationSatisfied
	}
	if len(session.Candidates) >= c.cfg.MaxCandidatesTotal && c.cfg.MaxCandidatesTotal > 0 {
		return models.TerminationSatisfied
	}
	if session.Visited >= c.cfg.MaxVisits {
		return models.TerminationMaxVisits
	}
	if c.collector.TotalCost() >= c.cfg.BudgetCap {
		return models.TerminationBudget
	}
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// The session timeout is a budget in disguise.
			return models.TerminationBudget
		}
		return models.TerminationCancelled
	}
	if c.cfg.FailureRateCutoff > 0 && session.Visited >= c.cfg.FailureRateMinVisits {
		rate := float64(session.FailedVisits) / float64(session.Visited)
		if rate > c.cfg.FailureRateCutoff {
			c.log.Warn("failure rate cutoff hit", "failed", session.FailedVisits, "visited", session.Visited)
			return models.TerminationFailureRate
		}
	}
	return ""
}

// visit fetches one frontier item and processes its content. Fetch
// failures get one immediate retry, then count as a failed visit; the
// session continues either way.
func (c *Coordinator) visit(ctx context.Context, session *models.SearchSession, item *models.FrontierItem) {
	siteID := models.SiteID(item.URL)
	session.Visited++

	content, err := c.fetchWithRetry(ctx, item.URL)
	if err != nil {
		c.log.Warn("visit failed", "url", item.URL, "error", err)
		session.FailedVisits++
		c.memory.RecordVisit(siteID, models.VisitOutcome{Success: false})
		return
	}

	result := c.nav.Analyze(content, item.URL)

	for _, link := range result.Links {
		c.frontier.Enqueue(link, item.URL, item.Depth+1)
	}

	yield := c.evaluateChunks(ctx, session, result.Chunks)

	outcome := models.VisitOutcome{
		Success:     true,
		YieldCount:  yield,
		Fingerprint: result.Fingerprint,
	}
	if yield > 0 {
		outcome.ListingPath = models.URLPath(item.URL)
	}
	c.memory.RecordVisit(siteID, outcome)

	c.log.Info("visited", "url", item.URL, "depth", item.Depth,
		"chunks", len(result.Chunks), "links", len(result.Links), "yield", yield)
}

// evaluateChunks runs the cascade over a page's listing chunks and
// returns how many relevant candidates the page yielded. Per-site and
// total quotas bound the model spend per page.
func (c *Coordinator) evaluateChunks(ctx context.Context, session *models.SearchSession, chunks []models.ContentChunk) int {
	yield := 0
	for _, chunk := range chunks {
		if chunk.Class != models.ChunkListing {
			continue
		}
		if yield >= c.cfg.MaxCandidatesPerSite && c.cfg.MaxCandidatesPerSite > 0 {
			break
		}
		if len(session.Candidates) >= c.cfg.MaxCandidatesTotal && c.cfg.MaxCandidatesTotal > 0 {
			break
		}
		if session.Relevant >= c.cfg.SatisfactionThreshold {
			break
		}
		if c.collector.TotalCost() >= c.cfg.BudgetCap {
			break
		}
		if ctx.Err() != nil {
			break
		}

		pre := c.scorer.Prefilter(chunk)
		if !pre.Pass {
			continue
		}

		candidate, err := c.scorer.Evaluate(ctx, chunk, pre)
		if err != nil {
			c.log.Error("evaluation failed", "url", chunk.SourceURL, "error", err)
			continue
		}

		switch candidate.Verdict {
		case models.VerdictUnevaluated:
			session.Unevaluated++
		case models.VerdictRelevant:
			session.Evaluated++
			session.Relevant++
			session.Candidates = append(session.Candidates, candidate)
			yield++
		default:
			session.Evaluated++
		}
	}
	return yield
}

func (c *Coordinator) fetchWithRetry(ctx context.Context, url string) (string, error) {
	start := time.Now()
	defer func() {
		c.collector.RecordTiming(metrics.OpFetch, time.Since(start))
	}()

	content, err := c.fetcher.Fetch(ctx, url)
	if err == nil {
		return content, nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	c.log.Debug("fetch retry", "url", url, "error", err)
	return c.fetcher.Fetch(ctx, url)
}

func (c *Coordinator) finish(session *models.SearchSession) {
	session.FinishedAt = time.Now()
	session.Cost = c.collector.TotalCost()
	c.updateProgress(session, "", true)
}

func (c *Coordinator) saveMemory() error {
	start := time.Now()
	err := c.memory.Save(c.cfg.MemoryFile)
	c.collector.RecordTiming(metrics.OpMemorySave, time.Since(start))
	if err != nil {
		c.log.Error("memory save failed, session results unaffected", "file", c.cfg.MemoryFile, "error", err)
		return fmt.Errorf("save memory: %w", err)
	}
	return nil
}
