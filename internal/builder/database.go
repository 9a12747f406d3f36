package builder

import (
	"context"
	"fmt"

	"github.com/futig/foodsafety-backend/internal/config"
	"github.com/futig/foodsafety-backend/internal/ratelimit"
	"github.com/futig/foodsafety-backend/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "foodsafety:ratelimit:"

// setupDatabase opens the pool and brings the schema up to date
func setupDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MinConns = int32(cfg.DBMinConns)
	poolConfig.MaxConnLifetime = cfg.DBMaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.DBMaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.DBHealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connection pool established",
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.Int32("min_conns", poolConfig.MinConns),
		zap.Duration("max_conn_lifetime", poolConfig.MaxConnLifetime),
	)

	logger.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	return pool, nil
}

// setupChunkRepository selects the corpus backend
func setupChunkRepository(cfg *config.Config, db *pgxpool.Pool, logger *zap.Logger) repository.ChunkRepository {
	if cfg.CorpusCfg.Backend == config.CorpusBackendFile {
		logger.Info("Using file corpus", zap.String("path", cfg.CorpusCfg.FilePath))
		return repository.NewChunkFile(cfg.CorpusCfg.FilePath)
	}
	logger.Info("Using postgres corpus")
	return repository.NewChunkPostgres(db)
}

// setupRateLimitStore returns the window store and, for redis, the client to close on shutdown
func setupRateLimitStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ratelimit.Store, *redis.Client, error) {
	if cfg.RateLimitCfg.Backend != config.RateLimitBackendRedis {
		logger.Info("Using in-memory rate limit store")
		return ratelimit.NewMemoryStore(
			ratelimit.WithSweepProbability(cfg.RateLimitCfg.SweepProbability),
		), nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisCfg.Addr,
		Password: cfg.RedisCfg.Password,
		DB:       cfg.RedisCfg.DB,
		PoolSize: cfg.RedisCfg.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("Using redis rate limit store", zap.String("addr", cfg.RedisCfg.Addr))
	return ratelimit.NewRedisStore(client, redisKeyPrefix), client, nil
}
