package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalidValue    = errors.New("invalid configuration value")
)

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"finrag"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"finrag"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`
	VectorAPIKey   string `envconfig:"VECTOR_API_KEY"`
	VectorIndex    string `envconfig:"VECTOR_INDEX" default:"TransactionChunk"`

	// Embedding
	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER" default:"gemini"` // gemini | openai
	EmbeddingEndpoint string `envconfig:"EMBEDDING_ENDPOINT"`
	EmbeddingAPIKey   string `envconfig:"EMBEDDING_API_KEY"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingCacheDir string `envconfig:"EMBEDDING_CACHE_DIR"`

	EmbedConcurrency       int `envconfig:"EMBED_CONCURRENCY" default:"4"`
	EmbedMaxAttempts       int `envconfig:"EMBED_MAX_ATTEMPTS" default:"3"`
	EmbedRetryBaseDelayMs  int `envconfig:"EMBED_RETRY_BASE_DELAY_MS" default:"500"`
	EmbedCallTimeoutSecond int `envconfig:"EMBED_CALL_TIMEOUT_SECONDS" default:"30"`

	RerankProvider string `envconfig:"RERANK_PROVIDER" default:"none"` // none | jina | cohere
	RerankAPIKey   string `envconfig:"RERANK_API_KEY"`

	// Pipeline
	OutputDir           string `envconfig:"REPORT_OUTPUT_DIR" default:"./pdfs"`
	CurrencySymbol      string `envconfig:"REPORT_CURRENCY_SYMBOL" default:"Rs."`
	ChunkSize           int    `envconfig:"CHUNK_SIZE" default:"1500"`
	ChunkOverlap        int    `envconfig:"CHUNK_OVERLAP" default:"200"`
	StageTimeoutSeconds int    `envconfig:"STAGE_TIMEOUT_SECONDS" default:"120"`

	NSQLookupd           string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost             string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP             string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`
	IngestionConcurrency int    `envconfig:"INGESTION_CONCURRENCY" default:"4"`
	EnableWorker         bool   `envconfig:"ENABLE_WORKER" default:"true"`

	DiscordWebhookURL string `envconfig:"DISCORD_WEBHOOK_URL"`

	// Server
	ServerPort    int    `envconfig:"SERVER_PORT" default:"8081"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`
	QueryLogPath  string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	_ = godotenv.Load(filepath.Join(cwd, "../.env"))

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.VectorIndex == "" {
		return fmt.Errorf("%w: VECTOR_INDEX", ErrMissingRequired)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: REPORT_OUTPUT_DIR", ErrMissingRequired)
	}
	switch c.EmbeddingProvider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("%w: EMBEDDING_PROVIDER=%q", ErrInvalidValue, c.EmbeddingProvider)
	}
	switch c.RerankProvider {
	case "", "none", "jina", "cohere":
	default:
		return fmt.Errorf("%w: RERANK_PROVIDER=%q", ErrInvalidValue, c.RerankProvider)
	}
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_SIZE=%d CHUNK_OVERLAP=%d", ErrInvalidValue, c.ChunkSize, c.ChunkOverlap)
	}
	if c.IngestionConcurrency < 1 {
		return fmt.Errorf("%w: INGESTION_CONCURRENCY=%d", ErrInvalidValue, c.IngestionConcurrency)
	}
	return nil
}
