// catalog-clean — очистка сырой выгрузки каталога.
//
// Пишет три артефакта: очищенный CSV, сводку и индекс картинок.
// С -use-classifier нераспознанные категории уходят в языковую модель,
// с -upload-storage артефакты выгружаются в кэш-бакет.
//
// Использование:
//
//	go run ./cmd/catalog-clean -source longdan_inventory.csv
//	go run ./cmd/catalog-clean -use-classifier -upload-storage catalog-cache
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/ilkoid/poncho-catalog/pkg/catalog"
	"github.com/ilkoid/poncho-catalog/pkg/config"
	"github.com/ilkoid/poncho-catalog/pkg/llm"
	"github.com/ilkoid/poncho-catalog/pkg/llm/openai"
	"github.com/ilkoid/poncho-catalog/pkg/s3storage"
	"github.com/ilkoid/poncho-catalog/pkg/utils"
)

type flags struct {
	configPath    string
	source        string
	outCSV        string
	summaryJSON   string
	imageIndex    string
	limit         int
	useClassifier bool
	model         string
	uploadBucket  string
	verbose       bool
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "config.yaml", "path to config.yaml (optional)")
	flag.StringVar(&f.source, "source", "longdan_inventory.csv", "raw export (.csv or .xlsx)")
	flag.StringVar(&f.outCSV, "out-csv", catalog.CleanedCSVName, "cleaned CSV output")
	flag.StringVar(&f.summaryJSON, "summary-json", "longdan_inventory_clean_summary.json", "summary JSON output")
	flag.StringVar(&f.imageIndex, "image-index", catalog.ImageIndexName, "SKU to image map output")
	flag.IntVar(&f.limit, "limit", 0, "stop after N unique SKUs (debugging)")
	flag.BoolVar(&f.useClassifier, "use-classifier", false, "consult the language model for unmapped categories")
	flag.StringVar(&f.model, "model", "", "classifier model alias (default: models.default_classifier)")
	flag.StringVar(&f.uploadBucket, "upload-storage", "", "bucket to upload cleaned artifacts to")
	flag.BoolVar(&f.verbose, "verbose", false, "echo log lines to stderr")
	flag.Parse()

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	cfg, err := config.LoadOptional(f.configPath)
	if err != nil {
		return err
	}

	if err := utils.InitLogger(cfg.App.LogPrefix + "-clean"); err != nil {
		return err
	}
	if f.verbose {
		utils.SetEcho(os.Stderr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer utils.SetupGracefulShutdown(cancel)()

	runID := uuid.NewString()
	utils.Info("Catalog clean started", "run_id", runID, "source", f.source, "limit", f.limit, "use_classifier", f.useClassifier)

	if _, err := os.Stat(f.source); err != nil {
		return fmt.Errorf("source file not found: %s", f.source)
	}
	rows, err := catalog.ReadRawRows(f.source)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	var resolver catalog.CategoryResolver
	if f.useClassifier {
		modelDef, ok := cfg.GetClassifierModel(f.model)
		if !ok {
			return fmt.Errorf("classifier model %q is not defined in config", f.model)
		}
		resolver = catalog.NewLLMCategoryResolver(openai.NewClient(modelDef),
			llm.WithTemperature(modelDef.Temperature))
	}

	catCfg := cfg.Catalog
	cleaner := catalog.NewCleaner(resolver, catalog.Options{
		Limit:            f.limit,
		UseResolver:      f.useClassifier,
		Currency:         catCfg.Currency,
		SourceBaseURL:    catCfg.SourceBaseURL,
		MissingImagesCap: catCfg.MissingImagesCap,
		VendorTopN:       catCfg.VendorTopN,
	})

	result, cleanErr := cleaner.Clean(ctx, rows)
	if result == nil {
		return cleanErr
	}

	// Артефакты пишутся даже при отказе классификатора
	index := result.Index()
	if err := catalog.WriteCleanedCSV(f.outCSV, result.Entries); err != nil {
		return fmt.Errorf("write cleaned csv: %w", err)
	}
	if err := catalog.WriteSummary(f.summaryJSON, result.Summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := catalog.WriteImageIndex(f.imageIndex, index); err != nil {
		return fmt.Errorf("write image index: %w", err)
	}

	fmt.Printf("Cleaned rows: %d (of %d read)\n", len(result.Entries), result.Summary.TotalRows)
	if len(result.Entries) > 0 {
		sample, _ := json.Marshal(result.Entries[0])
		fmt.Printf("Sample row: %s\n", sample)
	} else {
		fmt.Println("Sample row: N/A")
	}
	fmt.Printf("Images indexed: %d, missing: %d\n", len(index), len(result.Summary.MissingImages))
	fmt.Printf("Summary saved to %s\n", f.summaryJSON)

	utils.Info("Catalog clean artifacts written",
		"run_id", runID,
		"entries", len(result.Entries),
		"indexed", len(index),
		"overrides", len(result.Overrides))

	// Классификатор запрошен явно: его отказ фатален, но уже после записи артефактов
	if cleanErr != nil {
		kind := catalog.ClassificationRequest
		var classErr *catalog.ClassificationError
		if errors.As(cleanErr, &classErr) {
			kind = classErr.Kind
		}
		utils.Error("Category classifier failed", "run_id", runID, "kind", kind, "error", cleanErr)
		return fmt.Errorf("classifier: %w", cleanErr)
	}

	if f.uploadBucket != "" {
		if err := cfg.RequireS3(); err != nil {
			return err
		}
		store, err := s3storage.New(cfg.S3)
		if err != nil {
			return fmt.Errorf("s3 init: %w", err)
		}
		paths := catalog.ArtifactPaths{CleanedCSV: f.outCSV, Summary: f.summaryJSON, ImageIndex: f.imageIndex}
		if err := catalog.ExportArtifacts(ctx, store, f.uploadBucket, cfg.Storage.ArtifactsPrefix, paths); err != nil {
			return fmt.Errorf("upload artifacts: %w", err)
		}
		fmt.Printf("Uploaded cleaned artifacts to storage bucket '%s'.\n", f.uploadBucket)
		utils.Info("Catalog artifacts uploaded", "run_id", runID, "bucket", f.uploadBucket, "prefix", cfg.Storage.ArtifactsPrefix)
	}

	return nil
}
