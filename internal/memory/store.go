package memory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/raphaelgruber/jobsurfer/internal/models"
)

// SchemaVersion is the persisted state schema this build reads and
// writes. Older files with the same version load as-is; anything else
// degrades to empty state.
const SchemaVersion = 1

// persistedState is the on-disk layout of the memory file.
type persistedState struct {
	Version int                          `json:"version"`
	SavedAt time.Time                    `json:"saved_at"`
	Sites   map[string]models.SiteRecord `json:"sites"`
}

// Options configure the update rule.
type Options struct {
	// Decay is the weight of the newest outcome in the success-rate
	// moving average, in (0,1].
	Decay float64

	// MaxListingPaths bounds the per-site listing path set; the
	// least-recently-yielding entries are evicted beyond it.
	MaxListingPaths int
}

// Store is the durable site memory. Reads (Query, Sites) may run
// concurrently; all mutation goes through RecordVisit and Save, which
// only the Coordinator calls.
type Store struct {
	mu    sync.RWMutex
	sites map[string]models.SiteRecord
	opts  Options
	log   *slog.Logger

	now func() time.Time // injectable for tests
}

// Load reads the memory file at path into a new Store. A missing file
// yields an empty store. A corrupt or version-mismatched file also
// yields an empty store and a non-nil error wrapping ErrCorruptState or
// ErrUnknownVersion; both are non-fatal by contract.
func Load(path string, opts Options, log *slog.Logger) (*Store, error) {
	s := &Store{
		sites: make(map[string]models.SiteRecord),
		opts:  opts,
		log:   log,
		now:   time.Now,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Info("no memory file found, starting fresh", "file", path)
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("%w: read %s: %v", ErrCorruptState, path, err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return s, fmt.Errorf("%w: decode %s: %v", ErrCorruptState, path, err)
	}
	if state.Version != SchemaVersion {
		return s, fmt.Errorf("%w: got %d, want %d", ErrUnknownVersion, state.Version, SchemaVersion)
	}

	if state.Sites != nil {
		s.sites = state.Sites
	}
	log.Info("loaded memory", "file", path, "sites", len(s.sites))
	return s, nil
}

// Query returns the record for a site identifier, or nil when the site
// was never visited. The returned record is a copy.
func (s *Store) Query(siteID string) *models.SiteRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sites[siteID]
	if !ok {
		return nil
	}
	cp := rec
	cp.ListingPaths = append([]models.ListingPath(nil), rec.ListingPaths...)
	return &cp
}

// Sites returns all records sorted by site identifier.
func (s *Store) Sites() []models.SiteRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SiteRecord, 0, len(s.sites))
	for _, rec := range s.sites {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SiteID < out[j].SiteID })
	return out
}

// Len returns the number of known sites.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sites)
}

// RecordVisit folds a visit outcome into the site's record. The success
// rate moves toward the outcome value by the configured decay weight,
// which converges monotonically under repeated identical outcomes.
func (s *Store) RecordVisit(siteID string, outcome models.VisitOutcome) {
	if siteID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.sites[siteID]
	if !ok {
		rec = models.SiteRecord{
			SiteID:      siteID,
			SuccessRate: models.NeutralSuccessRate,
		}
	}

	rec.SuccessRate = clamp01(rec.SuccessRate + s.opts.Decay*(outcome.Value()-rec.SuccessRate))
	rec.Visits++
	rec.LastVisit = now
	if outcome.Fingerprint != "" {
		rec.Fingerprint = outcome.Fingerprint
	}
	if outcome.YieldCount > 0 && outcome.ListingPath != "" {
		rec.ListingPaths = mergeListingPath(rec.ListingPaths, outcome, now, s.opts.MaxListingPaths)
	}

	s.sites[siteID] = rec
}

// mergeListingPath unions the yielded path into the bounded set,
// evicting the least recently yielding entry when full.
func mergeListingPath(paths []models.ListingPath, outcome models.VisitOutcome, now time.Time, max int) []models.ListingPath {
	for i := range paths {
		if paths[i].Path == outcome.ListingPath {
			paths[i].LastYield = now
			paths[i].YieldCount += outcome.YieldCount
			return paths
		}
	}

	paths = append(paths, models.ListingPath{
		Path:       outcome.ListingPath,
		LastYield:  now,
		YieldCount: outcome.YieldCount,
	})

	if max > 0 && len(paths) > max {
		sort.Slice(paths, func(i, j int) bool { return paths[i].LastYield.After(paths[j].LastYield) })
		paths = paths[:max]
	}
	return paths
}

// Save writes the full state atomically: encode to a temp file in the
// destination directory, then rename over the old file. A crash
// mid-save leaves the previous state intact.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	state := persistedState{
		Version: SchemaVersion,
		SavedAt: s.now(),
		Sites:   make(map[string]models.SiteRecord, len(s.sites)),
	}
	for k, v := range s.sites {
		state.Sites[k] = v
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode memory state: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp memory file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp memory file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp memory file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp memory file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace memory file: %w", err)
	}

	s.log.Info("saved memory", "file", path, "sites", len(state.Sites))
	return nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
