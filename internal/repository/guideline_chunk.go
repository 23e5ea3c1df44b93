package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/caldermed/triage/internal/domain"
)

// GuidelineChunkRepository persists guideline chunks and serves
// nearest-neighbor queries over their embeddings.
type GuidelineChunkRepository struct {
	pool *pgxpool.Pool
}

func NewGuidelineChunkRepository(pool *pgxpool.Pool) *GuidelineChunkRepository {
	return &GuidelineChunkRepository{pool: pool}
}

// Upsert inserts a chunk keyed by its deterministic id. Chunk ids are
// derived from the document content version, so a conflicting id means the
// identical chunk is already indexed and the insert is a no-op. Returns
// whether a new row was created. Each upsert is atomic, so readers are
// never blocked by an in-progress ingestion run.
func (r *GuidelineChunkRepository) Upsert(ctx context.Context, chunk *domain.GuidelineChunk) (bool, error) {
	createdAt := chunk.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO guideline_chunks
			(id, doc_id, page, chunk_index, section_title, content, embedding, created_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		chunk.ID,
		chunk.DocID,
		chunk.Page,
		chunk.ChunkIndex,
		chunk.SectionTitle,
		chunk.Content,
		pgvector.NewVector(chunk.Embedding),
		createdAt,
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

// SearchSimilar returns up to limit passages above the similarity floor,
// ranked by descending similarity with ties broken by ascending chunk id
// for deterministic ordering.
func (r *GuidelineChunkRepository) SearchSimilar(ctx context.Context, embedding []float32, limit int, floor float64) ([]domain.RetrievedPassage, error) {
	if limit <= 0 {
		limit = 5
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.pool.Query(ctx,
		`SELECT id, content, page, section_title,
		        1.0 / (1.0 + (embedding <=> $1)) AS score
		 FROM guideline_chunks
		 WHERE 1.0 / (1.0 + (embedding <=> $1)) >= $2
		 ORDER BY score DESC, id ASC
		 LIMIT $3`,
		vec, floor, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	passages := make([]domain.RetrievedPassage, 0, limit)
	for rows.Next() {
		var p domain.RetrievedPassage
		if err := rows.Scan(&p.ChunkID, &p.Content, &p.Page, &p.SectionTitle, &p.Score); err != nil {
			return nil, err
		}
		passages = append(passages, p)
	}

	return passages, rows.Err()
}

// CountByDoc returns the number of indexed chunks for a document id.
func (r *GuidelineChunkRepository) CountByDoc(ctx context.Context, docID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM guideline_chunks WHERE doc_id = $1`, docID,
	).Scan(&count)
	return count, err
}
