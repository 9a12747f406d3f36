package builder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/futig/foodsafety-backend/internal/api"
	adminapi "github.com/futig/foodsafety-backend/internal/api/admin"
	chatapi "github.com/futig/foodsafety-backend/internal/api/chat"
	documentapi "github.com/futig/foodsafety-backend/internal/api/document"
	"github.com/futig/foodsafety-backend/internal/config"
	"github.com/futig/foodsafety-backend/internal/integration/embedding"
	"github.com/futig/foodsafety-backend/internal/metrics"
	"github.com/futig/foodsafety-backend/internal/pkg/extract"
	"github.com/futig/foodsafety-backend/internal/pkg/formatter"
	"github.com/futig/foodsafety-backend/internal/pkg/logger"
	"github.com/futig/foodsafety-backend/internal/pkg/validator"
	"github.com/futig/foodsafety-backend/internal/ratelimit"
	"github.com/futig/foodsafety-backend/internal/repository"
	"github.com/futig/foodsafety-backend/internal/retrieval"
	"github.com/futig/foodsafety-backend/internal/usecase/chat"
	"github.com/futig/foodsafety-backend/internal/usecase/ingest"
	"go.uber.org/zap"
)

// Build wires the HTTP server from the configuration selected by the -env flag.
func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	log.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
		zap.Int("counties", len(cfg.Counties)),
	)

	db, err := setupDatabase(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	app := &App{db: db, logger: log}

	// Initialize repositories
	chunkRepo := setupChunkRepository(cfg, db, log)
	var profileRepo repository.ProfileRepository = repository.NewProfilePostgres(db)
	if cfg.EnableMocks {
		log.Info("Using in-memory profiles")
		profileRepo = repository.NewProfileMemory()
	}

	store, redisClient, err := setupRateLimitStore(ctx, cfg, log)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("setup rate limit store: %w", err)
	}
	app.redis = redisClient
	limiter := ratelimit.NewLimiter(store, cfg.RateLimitCfg.MaxRequests, cfg.RateLimitCfg.Window)
	log.Info("Rate limiter configured",
		zap.String("backend", cfg.RateLimitCfg.Backend),
		zap.Int("max_requests", limiter.Limit()),
		zap.Duration("window", cfg.RateLimitCfg.Window),
	)

	// Initialize connectors
	embedder, err := setupEmbedder(ctx, cfg, log)
	if err != nil {
		app.close()
		return nil, err
	}
	llmConnector, err := setupLLM(ctx, cfg, log)
	if err != nil {
		app.close()
		return nil, err
	}
	verifier := setupTokenVerifier(cfg, log)
	docx := setupOffice(cfg, log)

	queryEmbedder := embedding.NewCachedEmbedder(embedder, embedding.NewMemoryCache(cfg.EmbeddingCfg.CacheTTL))
	retriever := retrieval.NewRetriever(chunkRepo, queryEmbedder, retrievalOptions(cfg.RetrievalCfg))
	chunker := retrieval.NewChunker(cfg.RetrievalCfg.ChunkSize, cfg.RetrievalCfg.ChunkOverlap)
	log.Info("Retrieval pipeline initialized",
		zap.Int("chunk_size", cfg.RetrievalCfg.ChunkSize),
		zap.Float64("min_score", cfg.RetrievalCfg.MinScore),
	)

	// Initialize use cases
	chatUC := chat.NewUsecase(retriever, llmConnector, profileRepo, cfg.Counties, cfg.DefaultCounty)
	ingestUC := ingest.NewUsecase(
		chunkRepo,
		embedder,
		extract.NewRegistry(docx.extract...),
		cfg.Counties,
		chunker,
		cfg.RetrievalCfg.MinChunkLength,
	)
	log.Info("Use cases initialized")

	// Setup API handlers
	registry := metrics.NewRegistry()
	requestValidator := validator.NewValidator(cfg.FileUploadCfg, cfg.Counties)
	handlers := api.Handlers{
		Chat:     chatapi.NewHandler(chatUC, formatter.NewFactory(docx.export...), requestValidator, cfg),
		Document: documentapi.NewHandler(ingestUC, cfg.FileUploadCfg, requestValidator, cfg.IsDevelopment()),
		Admin:    adminapi.NewHandler(registry),
	}

	router := api.SetupRouter(handlers, verifier, limiter, registry, cfg, log)
	log.Info("HTTP router configured")

	app.server = &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  2 * cfg.ServerReadTimeout,
	}

	log.Info("Application built successfully", zap.String("environment", cfg.Environment))
	return app, nil
}

// BuildIngestor wires the offline corpus builder for the given environment.
func BuildIngestor(environment string) (*Ingestor, error) {
	ctx := context.Background()

	cfg, err := config.Load(environment)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	db, err := setupDatabase(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	embedder, err := setupEmbedder(ctx, cfg, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	extractors := extract.NewRegistry(setupOffice(cfg, log).extract...)
	usecase := ingest.NewUsecase(
		setupChunkRepository(cfg, db, log),
		embedder,
		extractors,
		cfg.Counties,
		retrieval.NewChunker(cfg.RetrievalCfg.ChunkSize, cfg.RetrievalCfg.ChunkOverlap),
		cfg.RetrievalCfg.MinChunkLength,
	)

	return &Ingestor{
		Usecase:       usecase,
		Extractors:    extractors,
		DefaultCounty: cfg.DefaultCounty,
		Logger:        log,
		db:            db,
	}, nil
}

func retrievalOptions(cfg config.RetrievalConfig) retrieval.Options {
	return retrieval.Options{
		PerQueryTopK: cfg.PerQueryTopK,
		MinScore:     cfg.MinScore,
		MaxResults:   cfg.MaxResults,
		MaxParallel:  cfg.MaxParallel,
	}
}
