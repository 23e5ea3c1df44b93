// Package retrieval serves similarity search over the indexed guideline
// chunks.
package retrieval

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caldermed/triage/internal/domain"
)

const (
	embedMaxAttempts = 3
	embedBaseBackoff = 500 * time.Millisecond
)

// Embedder produces an embedding vector for a query.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// PassageSearcher runs nearest-neighbor search over indexed chunks.
type PassageSearcher interface {
	SearchSimilar(ctx context.Context, embedding []float32, limit int, floor float64) ([]domain.RetrievedPassage, error)
}

// Config bounds retrieval requests.
type Config struct {
	TopKDefault     int
	TopKMax         int
	SimilarityFloor float64
}

func DefaultConfig() Config {
	return Config{
		TopKDefault:     5,
		TopKMax:         20,
		SimilarityFloor: 0.25,
	}
}

// Service embeds a query and returns the best-matching guideline passages.
type Service struct {
	embedder Embedder
	searcher PassageSearcher
	cfg      Config
}

func NewService(embedder Embedder, searcher PassageSearcher, cfg Config) *Service {
	if cfg.TopKDefault <= 0 {
		cfg = DefaultConfig()
	}
	return &Service{embedder: embedder, searcher: searcher, cfg: cfg}
}

// Retrieve returns up to topK passages above the similarity floor, best
// first. topK of zero or less uses the default, values above the maximum
// are clamped. An empty result is a valid answer, not an error; embedding
// failures also degrade to an empty result so callers can fall back to
// their no-evidence path.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedPassage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.RetrievedPassage{}, nil
	}

	if topK <= 0 {
		topK = s.cfg.TopKDefault
	}
	if topK > s.cfg.TopKMax {
		topK = s.cfg.TopKMax
	}

	embedding, err := s.embedQuery(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("Query embedding failed, degrading to empty retrieval: %v", err)
		return []domain.RetrievedPassage{}, nil
	}

	passages, err := s.searcher.SearchSimilar(ctx, embedding, topK, s.cfg.SimilarityFloor)
	if err != nil {
		return nil, fmt.Errorf("failed to search guideline chunks: %w", err)
	}
	if passages == nil {
		passages = []domain.RetrievedPassage{}
	}
	return passages, nil
}

func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	var lastErr error
	backoff := embedBaseBackoff
	for attempt := 1; attempt <= embedMaxAttempts; attempt++ {
		embedding, err := s.embedder.GenerateEmbedding(ctx, query)
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
