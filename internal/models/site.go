package models

import "time"

// ListingPath is a URL path on a site that previously yielded relevant
// candidates, together with when it last did so (used for eviction).
type ListingPath struct {
	Path       string    `json:"path"`
	LastYield  time.Time `json:"last_yield"`
	YieldCount int       `json:"yield_count"`
}

// SiteRecord is the durable per-site memory: structural fingerprint,
// historical yield and the listing paths worth returning to. One record
// per site identifier, persisted across sessions.
type SiteRecord struct {
	// SiteID is the normalized domain (host without port / "www.").
	SiteID string `json:"site_id"`

	// Fingerprint is the structural signature of the site's layout as
	// last observed by the Navigator.
	Fingerprint string `json:"fingerprint,omitempty"`

	// SuccessRate is the decaying average of visit outcomes, in [0,1].
	// New sites start at the neutral prior 0.5.
	SuccessRate float64 `json:"success_rate"`

	// Visits counts all recorded visits, including failed ones.
	Visits int `json:"visits"`

	// ListingPaths are paths that previously yielded relevant
	// candidates, bounded in size with least-recently-yielding entries
	// evicted first.
	ListingPaths []ListingPath `json:"listing_paths,omitempty"`

	LastVisit time.Time `json:"last_visit"`
}

// NeutralSuccessRate is the prior assumed for sites never visited.
const NeutralSuccessRate = 0.5

// VisitOutcome is what the Coordinator reports to Memory after each
// visit attempt.
type VisitOutcome struct {
	// Success is false for fetch failures and true otherwise, including
	// visits that parsed to nothing.
	Success bool

	// YieldCount is the number of relevant candidates the visit produced.
	YieldCount int

	// Fingerprint is the structural signature computed by the Navigator,
	// empty when the fetch failed.
	Fingerprint string

	// ListingPath is the URL path that yielded candidates, recorded only
	// when YieldCount > 0.
	ListingPath string
}

// Value maps an outcome onto the [0,1] scale the success-rate average is
// computed over: 1 for a yielding visit, 0.3 for a successful visit with
// no yield, 0 for a failure.
func (o VisitOutcome) Value() float64 {
	switch {
	case !o.Success:
		return 0
	case o.YieldCount > 0:
		return 1
	default:
		return 0.3
	}
}
