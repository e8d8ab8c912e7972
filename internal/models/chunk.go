package models

// ChunkClass is the cheap heuristic classification of a content chunk.
// Only listing-like chunks proceed to the Evaluator.
type ChunkClass string

const (
	ChunkListing    ChunkClass = "listing"
	ChunkNavigation ChunkClass = "navigation"
	ChunkUnrelated  ChunkClass = "unrelated"
)

// ContentChunk is a bounded fragment of a fetched page, produced by the
// Navigator and consumed by the Evaluator within the same iteration.
type ContentChunk struct {
	// SourceURL is the normalized URL the chunk was extracted from.
	SourceURL string

	// Index is the chunk's position within the page.
	Index int

	// Content is the extracted text, at most the configured max chunk
	// size, split at structural boundaries (never mid-token).
	Content string

	// Class is the heuristic classification of the chunk.
	Class ChunkClass
}

// ChunkingConfig defines how the Navigator splits page text.
type ChunkingConfig struct {
	// Threshold: only chunk if content exceeds this length.
	Threshold int
	// MaxSize: hard upper bound per chunk.
	MaxSize int
	// MinSize: chunks smaller than this merge with a neighbor.
	MinSize int
}

// DefaultChunkingConfig returns sensible defaults.
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		Threshold: 4000,
		MaxSize:   4000,
		MinSize:   200,
	}
}
