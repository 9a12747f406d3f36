package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/futig/foodsafety-backend/internal/pkg/retry"
	"github.com/joho/godotenv"
)

const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"

	CorpusBackendPostgres = "postgres"
	CorpusBackendFile     = "file"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr         string        `env:"SERVER_ADDR,notEmpty"`
	ServerReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	ServerWriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"90s"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"75s"`

	// Database configuration
	DatabaseURL         string        `env:"DATABASE_URL,notEmpty"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// External services
	EmbeddingCfg EmbeddingConfig `envPrefix:"EMBEDDING_"`
	LLMCfg       LLMConfig       `envPrefix:"LLM_"`
	AuthCfg      AuthConfig      `envPrefix:"AUTH_"`
	RedisCfg     RedisConfig     `envPrefix:"REDIS_"`

	// Retrieval pipeline
	RetrievalCfg RetrievalConfig `envPrefix:"RETRIEVAL_"`
	RateLimitCfg RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	CorpusCfg    CorpusConfig    `envPrefix:"CORPUS_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// File upload configuration
	FileUploadCfg FileUploadConfig `envPrefix:"FILE_UPLOAD_"`

	// Users allowed to manage the corpus and read metrics
	AdminUserIDs []string `env:"ADMIN_USER_IDS" envSeparator:","`

	// Supported counties (loaded from YAML file)
	Counties      CountyCatalog
	CountiesFile  string `env:"COUNTIES_FILE" envDefault:"internal/config/counties.yaml"`
	DefaultCounty string `env:"DEFAULT_COUNTY" envDefault:"washtenaw"`

	// Metered unioffice key; DOCX upload and export stay disabled without it
	UnidocLicenseKey string `env:"UNIDOC_LICENSE_API_KEY"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Environment (set from flag, not from env var)
	Environment string
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	switch c.Environment {
	case "local", "dev", "development":
		return true
	default:
		return false
	}
}

type EmbeddingConfig struct {
	APIKey    string               `env:"API_KEY"`
	BaseURL   string               `env:"BASE_URL" envDefault:"https://api.openai.com/v1"`
	Model     string               `env:"MODEL" envDefault:"text-embedding-3-small"`
	BatchSize int                  `env:"BATCH_SIZE" envDefault:"100"`
	Timeout   time.Duration        `env:"TIMEOUT" envDefault:"30s"`
	CacheTTL  time.Duration        `env:"CACHE_TTL" envDefault:"1h"`
	Retry     pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type LLMConfig struct {
	APIKey          string               `env:"API_KEY"`
	Project         string               `env:"PROJECT"`
	Location        string               `env:"LOCATION" envDefault:"us-central1"`
	Model           string               `env:"MODEL" envDefault:"gemini-2.5-flash"`
	Timeout         time.Duration        `env:"TIMEOUT" envDefault:"60s"`
	Temperature     float32              `env:"TEMPERATURE" envDefault:"0.2"`
	MaxOutputTokens int                  `env:"MAX_OUTPUT_TOKENS" envDefault:"4096"`
	Retry           pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

// UseVertex reports whether the model is reached through a Vertex AI project instead of an API key.
func (c LLMConfig) UseVertex() bool {
	return c.Project != ""
}

type AuthConfig struct {
	HTTPClientConfig
	UserEndpoint string `env:"USER_ENDPOINT" envDefault:"/auth/v1/user"`
	APIKey       string `env:"API_KEY"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	PoolSize int    `env:"POOL_SIZE" envDefault:"10"`
}

type RetrievalConfig struct {
	ChunkSize      int     `env:"CHUNK_SIZE" envDefault:"1000"`
	ChunkOverlap   int     `env:"CHUNK_OVERLAP" envDefault:"200"`
	MinChunkLength int     `env:"MIN_CHUNK_LENGTH" envDefault:"100"`
	PerQueryTopK   int     `env:"PER_QUERY_TOP_K" envDefault:"10"`
	MinScore       float64 `env:"MIN_SCORE" envDefault:"0.3"`
	MaxResults     int     `env:"MAX_RESULTS" envDefault:"30"`
	MaxParallel    int     `env:"MAX_PARALLEL" envDefault:"4"`
}

type RateLimitConfig struct {
	MaxRequests      int           `env:"MAX_REQUESTS" envDefault:"10"`
	Window           time.Duration `env:"WINDOW" envDefault:"60s"`
	SweepProbability float64       `env:"SWEEP_PROBABILITY" envDefault:"0.01"`
	Backend          string        `env:"BACKEND" envDefault:"memory"`
}

type CorpusConfig struct {
	Backend  string `env:"BACKEND" envDefault:"postgres"`
	FilePath string `env:"FILE_PATH" envDefault:"data/corpus.json"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"10s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"5s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"10s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

// FileUploadConfig holds file upload limits
type FileUploadConfig struct {
	MaxFileSize   int64 `env:"MAX_FILE_SIZE" envDefault:"20971520"`   // 20 MiB
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"33554432"` // 32 MiB
	MaxImageSize  int   `env:"MAX_IMAGE_SIZE" envDefault:"5242880"`   // 5 MiB decoded
	MaxMessages   int   `env:"MAX_MESSAGES" envDefault:"50"`
	MaxMessageLen int   `env:"MAX_MESSAGE_LENGTH" envDefault:"10000"`
}

// LoadConfig reads configuration for the HTTP server, parsing the -env flag.
func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	return Load(*envFlag)
}

// Load reads the .env file of the given environment and parses the process environment.
func Load(environment string) (*Config, error) {
	envFile := getEnvFile(environment)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = environment
	cfg.DefaultCounty = strings.ToLower(strings.TrimSpace(cfg.DefaultCounty))

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	counties, err := LoadCounties(cfg.CountiesFile)
	if err != nil {
		return nil, fmt.Errorf("load counties: %w", err)
	}
	cfg.Counties = counties

	if !cfg.Counties.Contains(cfg.DefaultCounty) {
		return nil, fmt.Errorf("DEFAULT_COUNTY %q is not in the county catalog", cfg.DefaultCounty)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	// Database
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		errors = append(errors, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
	}
	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		errors = append(errors, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
	}

	// Retrieval
	r := cfg.RetrievalCfg
	if r.ChunkSize < 200 || r.ChunkSize > 8000 {
		errors = append(errors, fmt.Sprintf("RETRIEVAL_CHUNK_SIZE must be between 200 and 8000, got %d", r.ChunkSize))
	}
	if r.ChunkOverlap < 0 || r.ChunkOverlap >= r.ChunkSize {
		errors = append(errors, fmt.Sprintf("RETRIEVAL_CHUNK_OVERLAP must be between 0 and RETRIEVAL_CHUNK_SIZE(%d), got %d", r.ChunkSize, r.ChunkOverlap))
	}
	if r.MinScore < -1 || r.MinScore > 1 {
		errors = append(errors, fmt.Sprintf("RETRIEVAL_MIN_SCORE must be between -1 and 1, got %f", r.MinScore))
	}
	if r.MaxResults < 1 || r.PerQueryTopK < 1 || r.MaxParallel < 1 {
		errors = append(errors, "RETRIEVAL_MAX_RESULTS, RETRIEVAL_PER_QUERY_TOP_K and RETRIEVAL_MAX_PARALLEL must be positive")
	}

	// Embedding
	if cfg.EmbeddingCfg.BatchSize < 1 || cfg.EmbeddingCfg.BatchSize > 2048 {
		errors = append(errors, fmt.Sprintf("EMBEDDING_BATCH_SIZE must be between 1 and 2048, got %d", cfg.EmbeddingCfg.BatchSize))
	}

	// Rate limiting
	rl := cfg.RateLimitCfg
	if rl.MaxRequests < 1 {
		errors = append(errors, fmt.Sprintf("RATE_LIMIT_MAX_REQUESTS must be positive, got %d", rl.MaxRequests))
	}
	if rl.Window <= 0 {
		errors = append(errors, fmt.Sprintf("RATE_LIMIT_WINDOW must be positive, got %s", rl.Window))
	}
	if rl.SweepProbability < 0 || rl.SweepProbability > 1 {
		errors = append(errors, fmt.Sprintf("RATE_LIMIT_SWEEP_PROBABILITY must be between 0 and 1, got %f", rl.SweepProbability))
	}
	if rl.Backend != RateLimitBackendMemory && rl.Backend != RateLimitBackendRedis {
		errors = append(errors, fmt.Sprintf("RATE_LIMIT_BACKEND must be %q or %q, got %q", RateLimitBackendMemory, RateLimitBackendRedis, rl.Backend))
	}

	// Corpus
	if cfg.CorpusCfg.Backend != CorpusBackendPostgres && cfg.CorpusCfg.Backend != CorpusBackendFile {
		errors = append(errors, fmt.Sprintf("CORPUS_BACKEND must be %q or %q, got %q", CorpusBackendPostgres, CorpusBackendFile, cfg.CorpusCfg.Backend))
	}

	// Providers are only required when mocks are off
	if !cfg.EnableMocks {
		if cfg.EmbeddingCfg.APIKey == "" {
			errors = append(errors, "EMBEDDING_API_KEY is required when ENABLE_MOCKS is false")
		}
		if cfg.LLMCfg.APIKey == "" && cfg.LLMCfg.Project == "" {
			errors = append(errors, "either LLM_API_KEY or LLM_PROJECT is required when ENABLE_MOCKS is false")
		}
		if cfg.AuthCfg.Url == "" {
			errors = append(errors, "AUTH_SERVICE_URL is required when ENABLE_MOCKS is false")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
