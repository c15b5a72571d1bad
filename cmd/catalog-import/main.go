// catalog-import — загрузка очищенного CSV в таблицу materials.
//
// Upsert по SKU пачками: повторный прогон на том же CSV ничего не меняет,
// ручные правки quantity/safe_stock/location перезаписываются.
//
// Использование:
//
//	go run ./cmd/catalog-import -csv-path longdan_inventory_clean.csv -dry-run
//	go run ./cmd/catalog-import -migrate -batch-size 1000
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/ilkoid/poncho-catalog/pkg/catalog"
	"github.com/ilkoid/poncho-catalog/pkg/config"
	"github.com/ilkoid/poncho-catalog/pkg/importer"
	"github.com/ilkoid/poncho-catalog/pkg/materials"
	"github.com/ilkoid/poncho-catalog/pkg/utils"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml (optional)")
	csvPath := flag.String("csv-path", catalog.CleanedCSVName, "cleaned catalog CSV")
	batchSize := flag.Int("batch-size", 0, "rows per upsert batch (default: import.batch_size, max 1000)")
	limit := flag.Int("limit", 0, "import only the first N unique SKUs (debugging)")
	dryRun := flag.Bool("dry-run", false, "transform and print a sample without touching the database")
	migrate := flag.Bool("migrate", false, "create or update the materials table before importing")
	verbose := flag.Bool("verbose", false, "echo log lines to stderr")
	flag.Parse()

	if err := run(*configPath, *csvPath, *batchSize, *limit, *dryRun, *migrate, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, csvPath string, batchSize, limit int, dryRun, migrate, verbose bool) error {
	cfg, err := config.LoadOptional(configPath)
	if err != nil {
		return err
	}

	if err := utils.InitLogger(cfg.App.LogPrefix + "-import"); err != nil {
		return err
	}
	if verbose {
		utils.SetEcho(os.Stderr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer utils.SetupGracefulShutdown(cancel)()

	runID := uuid.NewString()
	utils.Info("Catalog import started", "run_id", runID, "csv", csvPath, "dry_run", dryRun)

	if _, err := os.Stat(csvPath); err != nil {
		return fmt.Errorf("CSV file not found: %s", csvPath)
	}
	rows, err := catalog.ReadRecords(csvPath)
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	records, stats := importer.Load(rows, limit)
	utils.Info("CSV transformed", "run_id", runID, "rows", stats.TotalRows, "skipped", stats.Skipped, "unique", stats.Unique)
	if len(records) == 0 {
		fmt.Println("No valid rows found; exiting.")
		return nil
	}

	sample, _ := json.Marshal(records[0])
	fmt.Printf("Sample payload: %s\n", sample)

	if batchSize == 0 {
		batchSize = cfg.Import.BatchSize
	}
	imp := &importer.Importer{BatchSize: batchSize, DryRun: dryRun}

	if dryRun {
		res, _ := imp.Run(ctx, records, nil)
		fmt.Printf("Dry run enabled; %d records in %d batches, database untouched.\n", len(records), res.Batches)
		return nil
	}

	db, err := materials.Open(cfg.Import, cfg.App.Debug)
	if err != nil {
		return err
	}
	repo := materials.NewRepository(db, cfg.Import.Table)
	if migrate {
		if err := repo.AutoMigrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	imp.Store = repo

	res, err := imp.Run(ctx, records, func(done, total int) {
		fmt.Printf("Upserted %d/%d rows\n", done, total)
	})
	if err != nil {
		return fmt.Errorf("import aborted after %d rows: %w", res.Upserted, err)
	}

	utils.Info("Catalog import finished", "run_id", runID, "upserted", res.Upserted, "batches", res.Batches)
	fmt.Println("✅ Import complete!")
	return nil
}
