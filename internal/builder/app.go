package builder

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/futig/foodsafety-backend/internal/pkg/extract"
	"github.com/futig/foodsafety-backend/internal/usecase/ingest"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// App represents the application with all its components
type App struct {
	server *http.Server
	db     *pgxpool.Pool
	redis  *redis.Client
	logger *zap.Logger
}

// Run serves HTTP until SIGINT/SIGTERM, then drains in-flight requests
func (a *App) Run() error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		a.logger.Error("Server error", zap.Error(err))
		a.close()
		return err
	case sig := <-sigChan:
		a.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.logger.Info("Shutting down server gracefully")

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", zap.Error(err))
		a.close()
		return err
	}

	a.close()
	a.logger.Info("Application stopped gracefully")
	return nil
}

// close releases the backing stores
func (a *App) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Redis close error", zap.Error(err))
		}
	}
	if a.db != nil {
		a.logger.Info("Closing database connections")
		a.db.Close()
	}
	_ = a.logger.Sync()
}

// Ingestor is the offline corpus builder used by cmd/ingest
type Ingestor struct {
	Usecase       *ingest.IngestUsecase
	Extractors    *extract.Registry
	DefaultCounty string
	Logger        *zap.Logger

	db *pgxpool.Pool
}

func (i *Ingestor) Close() {
	if i.db != nil {
		i.db.Close()
	}
	_ = i.Logger.Sync()
}
