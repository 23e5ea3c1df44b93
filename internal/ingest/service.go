package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/caldermed/triage/internal/domain"
	"github.com/caldermed/triage/internal/telemetry"
)

const (
	embedMaxAttempts = 3
	embedBaseBackoff = 500 * time.Millisecond
)

// Embedder produces an embedding vector for a piece of text.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ChunkStore persists guideline chunks.
type ChunkStore interface {
	Upsert(ctx context.Context, chunk *domain.GuidelineChunk) (bool, error)
}

// Report summarizes one ingestion run.
type Report struct {
	DocID         string `json:"doc_id"`
	DocVersion    string `json:"doc_version"`
	Pages         int    `json:"pages"`
	ChunksCreated int    `json:"chunks_created"`
	ChunksSkipped int    `json:"chunks_skipped"`
	ChunksFailed  int    `json:"chunks_failed"`
}

// Service runs the guideline ingestion pipeline: fetch, parse, chunk,
// embed, index. Chunk ids are derived from the document content hash, so
// re-running ingestion over an unchanged document is a no-op.
type Service struct {
	fetcher  Fetcher
	parser   DocumentParser
	embedder Embedder
	chunks   ChunkStore
	docID    string
	chunkCfg ChunkConfig
}

func NewService(fetcher Fetcher, parser DocumentParser, embedder Embedder, chunks ChunkStore, docID string, chunkCfg ChunkConfig) *Service {
	if chunkCfg.MaxChars <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	return &Service{
		fetcher:  fetcher,
		parser:   parser,
		embedder: embedder,
		chunks:   chunks,
		docID:    docID,
		chunkCfg: chunkCfg,
	}
}

// Ingest runs the full pipeline. Fetch and parse failures abort the run;
// per-chunk embedding failures are counted and skipped so one bad chunk
// does not lose the rest of the document.
func (s *Service) Ingest(ctx context.Context) (*Report, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.Ingest", telemetry.SpanAttributes{
		DocID:     s.docID,
		Operation: "ingest",
	})
	defer span.End()

	data, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document %s: %w", s.docID, err)
	}

	docVersion := DocVersion(data)

	pages, err := s.parser.Parse(data)
	if err != nil {
		return nil, err
	}

	report := &Report{
		DocID:      s.docID,
		DocVersion: docVersion,
		Pages:      len(pages),
	}

	for _, page := range pages {
		for _, pc := range ChunkPage(page, s.chunkCfg) {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			chunkID := domain.ChunkID(docVersion, page.Page, pc.Index)

			embedding, err := s.embedWithRetry(ctx, pc.Content)
			if err != nil {
				log.Printf("Embedding failed for chunk %s after %d attempts: %v", chunkID, embedMaxAttempts, err)
				report.ChunksFailed++
				continue
			}

			created, err := s.chunks.Upsert(ctx, &domain.GuidelineChunk{
				ID:           chunkID,
				DocID:        s.docID,
				Page:         page.Page,
				ChunkIndex:   pc.Index,
				SectionTitle: pc.SectionTitle,
				Content:      pc.Content,
				Embedding:    embedding,
			})
			if err != nil {
				return report, fmt.Errorf("failed to index chunk %s: %w", chunkID, err)
			}

			if created {
				report.ChunksCreated++
			} else {
				report.ChunksSkipped++
			}
		}
	}

	log.Printf("Ingestion complete for %s@%s: %d pages, %d created, %d skipped, %d failed",
		s.docID, docVersion, report.Pages, report.ChunksCreated, report.ChunksSkipped, report.ChunksFailed)

	return report, nil
}

func (s *Service) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	backoff := embedBaseBackoff
	for attempt := 1; attempt <= embedMaxAttempts; attempt++ {
		embedding, err := s.embedder.GenerateEmbedding(ctx, text)
		if err == nil {
			return embedding, nil
		}
		lastErr = err

		if attempt < embedMaxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, lastErr)
}

// DocVersion derives the content version identifier for a document from
// its raw bytes.
func DocVersion(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}
