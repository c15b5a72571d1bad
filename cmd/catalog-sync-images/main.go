// catalog-sync-images — зеркалирование картинок каталога в публичный бакет.
//
// Читает индекс картинок (локальный файл или объект в кэш-бакете),
// качает каждую картинку пулом воркеров и кладет под очищенным ключом.
// Ошибки отдельных SKU только считаются, код выхода от них не меняется.
//
// Использование:
//
//	go run ./cmd/catalog-sync-images -image-index longdan_image_index.json -skip-existing
//	go run ./cmd/catalog-sync-images -from-storage -workers 16
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ilkoid/poncho-catalog/pkg/catalog"
	"github.com/ilkoid/poncho-catalog/pkg/config"
	"github.com/ilkoid/poncho-catalog/pkg/imagesync"
	"github.com/ilkoid/poncho-catalog/pkg/s3storage"
	"github.com/ilkoid/poncho-catalog/pkg/utils"
)

type flags struct {
	configPath   string
	imageIndex   string
	fromStorage  bool
	bucket       string
	prefix       string
	limit        int
	workers      int
	skipExisting bool
	verbose      bool
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "config.yaml", "path to config.yaml")
	flag.StringVar(&f.imageIndex, "image-index", catalog.ImageIndexName, "path to the image index JSON")
	flag.BoolVar(&f.fromStorage, "from-storage", false, "read the image index from the cache bucket instead of a file")
	flag.StringVar(&f.bucket, "bucket", "", "destination bucket (default: storage.image_bucket)")
	flag.StringVar(&f.prefix, "prefix", "", "key prefix inside the bucket (default: storage.image_prefix)")
	flag.IntVar(&f.limit, "limit", 0, "only sync the first N SKUs (debugging)")
	flag.IntVar(&f.workers, "workers", 0, "download concurrency (default: sync.workers)")
	flag.BoolVar(&f.skipExisting, "skip-existing", false, "skip keys already present in the bucket")
	flag.BoolVar(&f.verbose, "verbose", false, "echo log lines to stderr")
	flag.Parse()

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireS3(); err != nil {
		return err
	}

	if err := utils.InitLogger(cfg.App.LogPrefix + "-sync"); err != nil {
		return err
	}
	if f.verbose {
		utils.SetEcho(os.Stderr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer utils.SetupGracefulShutdown(cancel)()

	store, err := s3storage.New(cfg.S3)
	if err != nil {
		return fmt.Errorf("s3 init: %w", err)
	}

	index, err := loadIndex(ctx, f, cfg, store)
	if err != nil {
		return err
	}

	bucket := firstNonEmpty(f.bucket, cfg.Storage.ImageBucket)
	prefix := firstNonEmpty(f.prefix, cfg.Storage.ImagePrefix)
	workers := f.workers
	if workers <= 0 {
		workers = cfg.Sync.Workers
	}

	runID := uuid.NewString()
	utils.Info("Image sync started",
		"run_id", runID,
		"bucket", bucket,
		"prefix", prefix,
		"indexed", len(index),
		"workers", workers,
		"skip_existing", f.skipExisting)

	engine := &imagesync.Engine{
		Store:   store,
		Fetcher: imagesync.NewHTTPFetcher(cfg.Sync),
		Resize: imagesync.ResizeOptions{
			MaxWidth: cfg.ImageProcessing.MaxWidth,
			Quality:  cfg.ImageProcessing.Quality,
		},
	}

	report, err := engine.Run(ctx, index, imagesync.Options{
		Bucket:        bucket,
		Prefix:        prefix,
		Limit:         f.limit,
		Workers:       workers,
		SkipExisting:  f.skipExisting,
		ProgressEvery: cfg.Sync.ProgressEvery,
		Progress: func(p imagesync.Progress) {
			fmt.Printf("Processed %d/%d (✅ %d / ⚠️ %d / ❌ %d)\n", p.Processed, p.Total, p.Uploaded, p.Skipped, p.Errors)
		},
	})

	fmt.Printf("\nDone! Total: %d, Uploaded: %d, Skipped: %d, Errors: %d (%s)\n",
		report.Total, report.Uploaded, report.Skipped, report.Errors, report.Duration.Round(time.Millisecond))
	for _, fail := range report.Failures {
		utils.Warn("Image not synced", "run_id", runID, "sku", fail.SKU, "url", fail.URL, "error", fail.Err)
	}

	if err != nil {
		return fmt.Errorf("image sync: %w", err)
	}
	return nil
}

func loadIndex(ctx context.Context, f flags, cfg *config.AppConfig, store *s3storage.Client) (catalog.ImageIndex, error) {
	if f.fromStorage {
		data, err := store.DownloadFile(ctx, cfg.Storage.CacheBucket, cfg.Storage.IndexKey)
		if err != nil {
			return nil, fmt.Errorf("download image index: %w", err)
		}
		return catalog.ParseImageIndex(data)
	}

	if _, err := os.Stat(f.imageIndex); err != nil {
		return nil, fmt.Errorf("image index not found: %s", f.imageIndex)
	}
	return catalog.ReadImageIndex(f.imageIndex)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
