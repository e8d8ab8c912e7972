package models

// FrontierItem is a discovered-but-not-yet-visited URL in the current
// session. Items are unique per normalized URL within a session.
type FrontierItem struct {
	// URL is the normalized candidate URL.
	URL string

	// ParentURL is the normalized URL of the page that discovered this
	// item; empty for session seeds.
	ParentURL string

	// Depth is the discovery depth: 0 for seeds, parent depth + 1 for
	// discovered links.
	Depth int

	// Seq is the insertion sequence number, assigned by the Explorer.
	// It is the final deterministic tie-breaker during selection.
	Seq int

	// Priority is the last explore/exploit score computed for this item.
	// Informational only; selection recomputes scores against live
	// memory state.
	Priority float64

	// Visited marks an item consumed by the Coordinator. Visited items
	// are never selected again within the session.
	Visited bool
}
