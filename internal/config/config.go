package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DefaultGuidelineURL is the published NICE NG12 "Suspected cancer:
// recognition and referral" PDF.
const DefaultGuidelineURL = "https://www.nice.org.uk/guidance/ng12/resources/suspected-cancer-recognition-and-referral-pdf-1837268071621"

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Guideline source document
	GuidelineURL   string `envconfig:"GUIDELINE_URL"`
	GuidelineDocID string `envconfig:"GUIDELINE_DOC_ID" default:"ng12"`
	DataDir        string `envconfig:"DATA_DIR" default:"data"`

	// Optional S3 cache for the fetched guideline document so replicas
	// share a single download.
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"triage-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Embedding provider. The same model must be used at ingestion and
	// query time or the vector spaces will not match.
	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	// Generative provider
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	GenerativeModel string `envconfig:"GENERATIVE_MODEL" default:"gemini-2.0-flash"`

	// Patient lookup collaborator
	PatientsPath string `envconfig:"PATIENTS_PATH" default:"data/patients.json"`

	// Chunking
	ChunkMaxChars int `envconfig:"CHUNK_MAX_CHARS" default:"1200"`
	ChunkMinChars int `envconfig:"CHUNK_MIN_CHARS" default:"400"`
	ChunkOverlap  int `envconfig:"CHUNK_OVERLAP" default:"200"`

	// Retrieval
	TopKDefault     int     `envconfig:"TOP_K_DEFAULT" default:"5"`
	TopKMax         int     `envconfig:"TOP_K_MAX" default:"20"`
	SimilarityFloor float64 `envconfig:"SIMILARITY_FLOOR" default:"0.25"`

	// Orchestration bounds
	MaxToolCalls      int           `envconfig:"MAX_TOOL_CALLS" default:"8"`
	HistoryWindow     int           `envconfig:"HISTORY_WINDOW" default:"20"`
	AssessmentTimeout time.Duration `envconfig:"ASSESSMENT_TIMEOUT" default:"120s"`
	ChatTimeout       time.Duration `envconfig:"CHAT_TIMEOUT" default:"60s"`

	// Periodic re-ingestion of the guideline source. Safe because ingestion
	// is idempotent; zero disables the refresh worker.
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("TRIAGE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.GuidelineURL == "" {
		cfg.GuidelineURL = DefaultGuidelineURL
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}
