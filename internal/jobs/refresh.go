package jobs

import (
	"context"
	"log"

	"github.com/caldermed/triage/internal/ingest"
)

// Ingestor re-runs the guideline ingestion pipeline.
type Ingestor interface {
	Ingest(ctx context.Context) (*ingest.Report, error)
}

// RefreshProcessor periodically re-ingests the guideline source. Chunk ids
// are content-derived, so an unchanged document is a cheap no-op and a
// republished one is indexed under new ids without downtime.
type RefreshProcessor struct {
	ingestor Ingestor
}

func NewRefreshProcessor(ingestor Ingestor) *RefreshProcessor {
	return &RefreshProcessor{ingestor: ingestor}
}

func (p *RefreshProcessor) Run(ctx context.Context) error {
	report, err := p.ingestor.Ingest(ctx)
	if err != nil {
		return err
	}

	if report.ChunksCreated > 0 || report.ChunksFailed > 0 {
		log.Printf("Guideline refresh for %s: %d created, %d skipped, %d failed",
			report.DocID, report.ChunksCreated, report.ChunksSkipped, report.ChunksFailed)
	}
	return nil
}
