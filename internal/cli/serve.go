package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/caldermed/triage/internal/agent"
	"github.com/caldermed/triage/internal/api/handlers"
	"github.com/caldermed/triage/internal/config"
	"github.com/caldermed/triage/internal/database"
	"github.com/caldermed/triage/internal/domain"
	"github.com/caldermed/triage/internal/gemini"
	"github.com/caldermed/triage/internal/ingest"
	"github.com/caldermed/triage/internal/jobs"
	"github.com/caldermed/triage/internal/openai"
	"github.com/caldermed/triage/internal/patients"
	"github.com/caldermed/triage/internal/repository"
	"github.com/caldermed/triage/internal/retrieval"
	"github.com/caldermed/triage/internal/server"
	"github.com/caldermed/triage/internal/session"
	"github.com/caldermed/triage/internal/storage"
	"github.com/caldermed/triage/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the triage API server",
		Long:  "Start the clinical triage API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required to serve retrieval")
	}
	if !cfg.HasGemini() {
		return fmt.Errorf("GEMINI_API_KEY is required to serve assessment and chat")
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	chunkRepo := repository.NewGuidelineChunkRepository(pool)

	embedder := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})

	generative, err := gemini.NewClient(ctx, gemini.Config{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GenerativeModel,
	})
	if err != nil {
		return fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer generative.Close()

	patientStore := patients.NewStore(cfg.PatientsPath)
	sessionStore := session.NewStore()

	retrievalSvc := retrieval.NewService(embedder, chunkRepo, retrieval.Config{
		TopKDefault:     cfg.TopKDefault,
		TopKMax:         cfg.TopKMax,
		SimilarityFloor: cfg.SimilarityFloor,
	})

	assessmentOrch := agent.NewAssessmentOrchestrator(
		&geminiGateway{client: generative},
		patientStore,
		retrievalSvc,
		agent.AssessmentConfig{
			MaxToolCalls: cfg.MaxToolCalls,
			Temperature:  0.1,
			Timeout:      cfg.AssessmentTimeout,
		},
	)
	chatOrch := agent.NewChatOrchestrator(generative, retrievalSvc, sessionStore, agent.ChatConfig{
		Temperature:   0.2,
		HistoryWindow: cfg.HistoryWindow,
		Timeout:       cfg.ChatTimeout,
	})

	// Optional object-store cache so replicas share one guideline download.
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
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		docCache = s3Client
	}

	fetcher := ingest.NewDocumentFetcher(cfg.GuidelineURL, cfg.GuidelineDocID, cfg.DataDir, docCache)
	ingestSvc := ingest.NewService(fetcher, ingest.NewPDFParser(), embedder, chunkRepo, cfg.GuidelineDocID, ingest.ChunkConfig{
		MaxChars: cfg.ChunkMaxChars,
		MinChars: cfg.ChunkMinChars,
		Overlap:  cfg.ChunkOverlap,
	})

	if count, err := chunkRepo.CountByDoc(ctx, cfg.GuidelineDocID); err != nil {
		log.Printf("failed to count indexed chunks: %v", err)
	} else if count == 0 {
		log.Printf("no guideline chunks indexed for %s; run 'triaged ingest' or enable TRIAGE_REFRESH_INTERVAL", cfg.GuidelineDocID)
	} else {
		log.Printf("%d guideline chunks indexed for %s", count, cfg.GuidelineDocID)
	}

	var refreshWorker *jobs.Worker
	if cfg.RefreshInterval > 0 {
		refreshWorker = jobs.NewWorker(jobs.NewRefreshProcessor(ingestSvc), cfg.RefreshInterval)
		go refreshWorker.Start(ctx)
		log.Println("guideline refresh worker started")
	}

	routerCfg := server.RouterConfig{
		AssessmentHandler: handlers.NewAssessmentHandler(assessmentOrch),
		ChatHandler:       handlers.NewChatHandler(chatOrch, sessionStore),
		PatientHandler:    handlers.NewPatientHandler(patientStore),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if refreshWorker != nil {
		refreshWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// geminiGateway adapts the concrete gemini client to the orchestrator's
// gateway interface.
type geminiGateway struct {
	client *gemini.Client
}

func (g *geminiGateway) StartToolConversation(system string, tools []domain.ToolSpec, temperature float32) agent.ToolConversation {
	return g.client.StartToolConversation(system, tools, temperature)
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	// Get migration version and status
	version, dirty, versionErr := m.Version()
	if versionErr != nil && versionErr != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", versionErr)
	}

	status, err := migrationStatus(upErr, versionErr, version, dirty)
	if err != nil {
		return err
	}
	log.Println(status)

	return nil
}

// migrationStatus reports the outcome of a migration run. A dirty schema
// version is an error requiring manual intervention.
func migrationStatus(upErr, versionErr error, version uint, dirty bool) (string, error) {
	if versionErr == migrate.ErrNilVersion {
		return "migrations: database is up to date (no migrations applied)", nil
	}
	if dirty {
		return "", fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	}
	if upErr == migrate.ErrNoChange {
		return fmt.Sprintf("migrations: database is up to date (version %d)", version), nil
	}
	return fmt.Sprintf("migrations: applied successfully (version %d)", version), nil
}
