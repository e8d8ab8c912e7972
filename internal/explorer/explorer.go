// Package explorer holds the session frontier and decides which URL to
// visit next. Selection balances exploitation of sites that produced
// results before against exploration of unknown ground, with no
// randomness anywhere: the same frontier and memory state always yield
// the same pick.
package explorer

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/raphaelgruber/jobsurfer/internal/models"
)

// lowSuccessPenalty is subtracted from the exploit term of sites whose
// success rate fell below the configured floor.
const lowSuccessPenalty = 0.3

// SiteMemory is the read-only slice of the memory store the Explorer
// scores against. The Explorer never writes memory.
type SiteMemory interface {
	Query(siteID string) *models.SiteRecord
}

// Options tune the selection policy.
type Options struct {
	// ExploreWeight is w in score = (1-w)*exploit + w*explore.
	ExploreWeight float64

	// ListingPathBonus is added to the exploit term when the URL extends
	// a path that yielded listings before.
	ListingPathBonus float64

	// LowSuccessFloor: sites whose success rate fell below it get a
	// fixed penalty. They stay selectable, just last.
	LowSuccessFloor float64

	// MaxDepth drops links discovered deeper than this many hops from a
	// seed. Seeds are depth 0.
	MaxDepth int
}

// Explorer owns the frontier for one session. Not safe for concurrent
// use; the Coordinator is its only caller.
type Explorer struct {
	opts   Options
	memory SiteMemory
	log    *slog.Logger

	items []*models.FrontierItem
	seen  map[string]bool
	seq   int
}

// New creates an Explorer with an empty frontier.
func New(opts Options, memory SiteMemory, log *slog.Logger) *Explorer {
	return &Explorer{
		opts:   opts,
		memory: memory,
		log:    log,
		seen:   make(map[string]bool),
	}
}

// Enqueue adds a discovered URL to the frontier. The URL is normalized
// before dedup, so two spellings of the same page cannot both enter.
// Returns true when the item was accepted.
func (e *Explorer) Enqueue(rawURL, parentURL string, depth int) bool {
	var base *url.URL
	if parentURL != "" {
		base, _ = url.Parse(parentURL)
	}
	norm, err := models.NormalizeURL(rawURL, base)
	if err != nil {
		e.log.Debug("frontier rejected url", "url", rawURL, "error", err)
		return false
	}
	if depth > e.opts.MaxDepth {
		e.log.Debug("frontier dropped url beyond max depth", "url", norm, "depth", depth)
		return false
	}
	if e.seen[norm] {
		return false
	}

	e.seen[norm] = true
	e.items = append(e.items, &models.FrontierItem{
		URL:       norm,
		ParentURL: parentURL,
		Depth:     depth,
		Seq:       e.seq,
	})
	e.seq++
	return true
}

// SelectNext scores every unvisited item against current memory state
// and returns the best one, marking it visited. Ties break toward the
// shallower item, then the earlier insertion. Returns nil when the
// frontier is exhausted.
func (e *Explorer) SelectNext() *models.FrontierItem {
	var best *models.FrontierItem
	var bestScore float64

	for _, item := range e.items {
		if item.Visited {
			continue
		}
		score := e.score(item)
		item.Priority = score

		if best == nil || score > bestScore ||
			(score == bestScore && (item.Depth < best.Depth ||
				(item.Depth == best.Depth && item.Seq < best.Seq))) {
			best = item
			bestScore = score
		}
	}

	if best == nil {
		return nil
	}
	best.Visited = true
	return best
}

// Remaining reports how many unvisited items the frontier holds.
func (e *Explorer) Remaining() int {
	n := 0
	for _, item := range e.items {
		if !item.Visited {
			n++
		}
	}
	return n
}

// score computes the explore/exploit priority for one item.
func (e *Explorer) score(item *models.FrontierItem) float64 {
	w := e.opts.ExploreWeight

	exploit := models.NeutralSuccessRate
	explore := 1.0

	if rec := e.memory.Query(models.SiteID(item.URL)); rec != nil {
		exploit = rec.SuccessRate
		if e.extendsListingPath(rec, item.URL) {
			exploit += e.opts.ListingPathBonus
		}
		if rec.SuccessRate < e.opts.LowSuccessFloor {
			exploit -= lowSuccessPenalty
		}
		explore = 1.0 / float64(1+rec.Visits)
	}

	if exploit > 1 {
		exploit = 1
	}
	if exploit < 0 {
		exploit = 0
	}

	return (1-w)*exploit + w*explore
}

// extendsListingPath reports whether the URL's path sits under a path
// that yielded listings on this site before.
func (e *Explorer) extendsListingPath(rec *models.SiteRecord, url string) bool {
	path := models.URLPath(url)
	for _, lp := range rec.ListingPaths {
		if lp.Path == "" {
			continue
		}
		if path == lp.Path || strings.HasPrefix(path, strings.TrimRight(lp.Path, "/")+"/") {
			return true
		}
	}
	return false
}
