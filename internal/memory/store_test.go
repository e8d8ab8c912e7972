package memory

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raphaelgruber/jobsurfer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{Decay: 0.3, MaxListingPaths: 3}
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestLoad_MissingFileYieldsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")

	s, err := Load(path, testOptions(), discard())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestLoad_CorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := Load(path, testOptions(), discard())
	require.ErrorIs(t, err, ErrCorruptState)
	require.NotNil(t, s)
	assert.Equal(t, 0, s.Len())
}

func TestLoad_UnknownVersionDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "sites": {}}`), 0644))

	s, err := Load(path, testOptions(), discard())
	require.ErrorIs(t, err, ErrUnknownVersion)
	assert.Equal(t, 0, s.Len())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")

	s, err := Load(path, testOptions(), discard())
	require.NoError(t, err)

	s.RecordVisit("acme.example", models.VisitOutcome{
		Success:     true,
		YieldCount:  2,
		Fingerprint: "abc123",
		ListingPath: "/careers",
	})
	s.RecordVisit("other.example", models.VisitOutcome{Success: false})

	require.NoError(t, s.Save(path))

	loaded, err := Load(path, testOptions(), discard())
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())

	rec := loaded.Query("acme.example")
	require.NotNil(t, rec)
	assert.Equal(t, "abc123", rec.Fingerprint)
	assert.Equal(t, 1, rec.Visits)
	require.Len(t, rec.ListingPaths, 1)
	assert.Equal(t, "/careers", rec.ListingPaths[0].Path)
	assert.InDelta(t, s.Query("acme.example").SuccessRate, rec.SuccessRate, 1e-9)
}

func TestRecordVisit_SuccessRateConvergesMonotonically(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "m.json"), testOptions(), discard())
	require.NoError(t, err)

	// Repeated failures: rate must decrease toward 0 without oscillation.
	prev := models.NeutralSuccessRate
	for i := 0; i < 20; i++ {
		s.RecordVisit("fail.example", models.VisitOutcome{Success: false})
		rate := s.Query("fail.example").SuccessRate
		assert.LessOrEqual(t, rate, prev, "iteration %d", i)
		assert.GreaterOrEqual(t, rate, 0.0)
		prev = rate
	}
	assert.Less(t, prev, 0.01)

	// Repeated yielding successes: rate must increase toward 1.
	prev = models.NeutralSuccessRate
	for i := 0; i < 20; i++ {
		s.RecordVisit("win.example", models.VisitOutcome{Success: true, YieldCount: 1})
		rate := s.Query("win.example").SuccessRate
		assert.GreaterOrEqual(t, rate, prev, "iteration %d", i)
		assert.LessOrEqual(t, rate, 1.0)
		prev = rate
	}
	assert.Greater(t, prev, 0.99)
}

func TestRecordVisit_ListingPathsBoundedWithEviction(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "m.json"), testOptions(), discard())
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 0
	s.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	for _, p := range []string{"/a", "/b", "/c", "/d"} {
		s.RecordVisit("acme.example", models.VisitOutcome{Success: true, YieldCount: 1, ListingPath: p})
	}

	rec := s.Query("acme.example")
	require.Len(t, rec.ListingPaths, 3)

	// Oldest yield (/a) is evicted.
	for _, lp := range rec.ListingPaths {
		assert.NotEqual(t, "/a", lp.Path)
	}
}

func TestRecordVisit_RepeatPathUpdatesInsteadOfDuplicating(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "m.json"), testOptions(), discard())
	require.NoError(t, err)

	s.RecordVisit("acme.example", models.VisitOutcome{Success: true, YieldCount: 1, ListingPath: "/careers"})
	s.RecordVisit("acme.example", models.VisitOutcome{Success: true, YieldCount: 2, ListingPath: "/careers"})

	rec := s.Query("acme.example")
	require.Len(t, rec.ListingPaths, 1)
	assert.Equal(t, 3, rec.ListingPaths[0].YieldCount)
}

func TestSave_LeavesPriorStateOnUnwritableDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memory.json")

	s, err := Load(path, testOptions(), discard())
	require.NoError(t, err)
	s.RecordVisit("acme.example", models.VisitOutcome{Success: true})
	require.NoError(t, s.Save(path))

	// Save into a nonexistent directory fails without touching the
	// previous file.
	err = s.Save(filepath.Join(dir, "missing", "memory.json"))
	require.Error(t, err)

	loaded, err := Load(path, testOptions(), discard())
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
}
