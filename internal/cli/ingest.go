package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/caldermed/triage/internal/config"
	"github.com/caldermed/triage/internal/database"
	"github.com/caldermed/triage/internal/ingest"
	"github.com/caldermed/triage/internal/openai"
	"github.com/caldermed/triage/internal/repository"
	"github.com/caldermed/triage/internal/storage"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch and index the guideline document",
		Long:  "Run the ingestion pipeline once: fetch the guideline PDF, chunk it, embed the chunks, and index them. Safe to re-run; unchanged documents are a no-op.",
		RunE:  runIngest,
	}

	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required for ingestion")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	var docCache ingest.ObjectCache
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		docCache = s3Client
	}

	embedder := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})

	chunkRepo := repository.NewGuidelineChunkRepository(pool)
	fetcher := ingest.NewDocumentFetcher(cfg.GuidelineURL, cfg.GuidelineDocID, cfg.DataDir, docCache)
	ingestSvc := ingest.NewService(fetcher, ingest.NewPDFParser(), embedder, chunkRepo, cfg.GuidelineDocID, ingest.ChunkConfig{
		MaxChars: cfg.ChunkMaxChars,
		MinChars: cfg.ChunkMinChars,
		Overlap:  cfg.ChunkOverlap,
	})

	log.Printf("ingesting %s from %s", cfg.GuidelineDocID, cfg.GuidelineURL)

	report, err := ingestSvc.Ingest(ctx)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
