package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/futig/foodsafety-backend/internal/builder"
	"github.com/futig/foodsafety-backend/internal/entity"
	"go.uber.org/zap"
)

type options struct {
	env     string
	dir     string
	county  string
	rebuild bool
	timeout time.Duration
}

// Walks a directory of regulatory documents and loads them into the corpus.
// Without -county, files under dir/<county>/ are tagged with that county and
// files directly in dir get the configured default county.
func main() {
	var opts options
	flag.StringVar(&opts.env, "env", "local", "Environment to run (local, prod, or custom)")
	flag.StringVar(&opts.dir, "dir", "documents", "Directory with source documents")
	flag.StringVar(&opts.county, "county", "", "County tag for every file (default: derived from subdirectory)")
	flag.BoolVar(&opts.rebuild, "rebuild", false, "Delete the whole corpus before ingesting")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Per-file timeout")
	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatal("Ingestion failed: ", err)
	}
}

// run owns the ingestor so Close always executes before the process exits.
func run(opts options) error {
	ingestor, err := builder.BuildIngestor(opts.env)
	if err != nil {
		return fmt.Errorf("build ingestor: %w", err)
	}
	defer ingestor.Close()
	logger := ingestor.Logger

	logger.Info("ingesting documents",
		zap.String("dir", opts.dir),
		zap.Strings("extensions", ingestor.Extractors.Extensions()),
	)

	ctx := context.Background()
	if opts.rebuild {
		removed, err := ingestor.Usecase.Rebuild(ctx)
		if err != nil {
			return fmt.Errorf("rebuild corpus: %w", err)
		}
		logger.Info("corpus cleared", zap.Int64("chunks_removed", removed))
	}

	var files, failed, created, skipped int
	walkErr := filepath.WalkDir(opts.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !ingestor.Extractors.Supported(d.Name()) {
			return nil
		}

		county := opts.county
		if county == "" {
			county = countyFromPath(opts.dir, path, ingestor.DefaultCounty)
		}

		files++
		result, err := ingestFile(ctx, ingestor, path, county, opts.timeout)
		if err != nil {
			failed++
			logger.Error("ingest file", zap.String("path", path), zap.String("county", county), zap.Error(err))
			return nil
		}

		created += result.ChunksCreated
		skipped += result.ChunksSkipped
		logger.Info("ingested file",
			zap.String("path", path),
			zap.String("county", result.County),
			zap.Int("chunks", result.ChunksCreated),
			zap.Int("skipped", result.ChunksSkipped),
		)
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("walk %s: %w", opts.dir, walkErr)
	}

	logger.Info("ingestion finished",
		zap.Int("files", files),
		zap.Int("failed", failed),
		zap.Int("chunks_created", created),
		zap.Int("chunks_skipped", skipped),
	)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, files)
	}
	return nil
}

func ingestFile(ctx context.Context, ingestor *builder.Ingestor, path, county string, timeout time.Duration) (*entity.IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return ingestor.Usecase.IngestFile(ctx, &entity.IngestFileRequest{
		County:   county,
		Filename: filepath.Base(path),
		Size:     info.Size(),
		Content:  f,
	})
}

func countyFromPath(root, path, fallback string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return fallback
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 || parts[0] == ".." {
		return fallback
	}
	return parts[0]
}
