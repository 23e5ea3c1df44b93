package domain

import (
	"fmt"
	"time"
)

// GuidelineChunk represents an indexed span of guideline text with page
// metadata and its precomputed embedding.
type GuidelineChunk struct {
	ID           string
	DocID        string
	Page         int
	ChunkIndex   int
	SectionTitle string
	Content      string
	Embedding    []float32
	CreatedAt    time.Time
}

// ChunkID derives the stable identifier for a chunk from the document
// content version and the chunk's position. Re-ingesting unchanged content
// recomputes the same ids, which makes upserts idempotent.
func ChunkID(docVersion string, page, index int) string {
	return fmt.Sprintf("chunk_%s_p%03d_%02d", docVersion, page, index)
}

// RetrievedPassage is a transient search hit returned by the retriever.
// It is never persisted.
type RetrievedPassage struct {
	ChunkID      string  `json:"chunk_id"`
	Content      string  `json:"content"`
	Page         int     `json:"page_number"`
	SectionTitle string  `json:"section"`
	Score        float64 `json:"score"`
}
