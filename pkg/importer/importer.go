package importer

import (
	"context"
	"fmt"

	"github.com/ilkoid/poncho-catalog/pkg/config"
	"github.com/ilkoid/poncho-catalog/pkg/materials"
	"github.com/ilkoid/poncho-catalog/pkg/utils"
)

// DefaultBatchSize — размер пачки по умолчанию.
const DefaultBatchSize = 500

// Store — приемник пачек. materials.Repository реализует его.
type Store interface {
	UpsertBatch(ctx context.Context, records []materials.Record) error
}

var _ Store = (*materials.Repository)(nil)

// ProgressFunc получает число обработанных записей после каждой пачки.
type ProgressFunc func(done, total int)

// Importer загружает записи пачками.
type Importer struct {
	Store     Store
	BatchSize int
	DryRun    bool
}

// Result — итог загрузки.
type Result struct {
	Batches  int
	Upserted int
	DryRun   bool
}

// EffectiveBatchSize приводит размер пачки к [1, config.MaxImportBatchSize].
func (imp *Importer) EffectiveBatchSize() int {
	switch {
	case imp.BatchSize <= 0:
		return DefaultBatchSize
	case imp.BatchSize > config.MaxImportBatchSize:
		return config.MaxImportBatchSize
	}
	return imp.BatchSize
}

// Run отправляет записи пачками. Первая ошибка хранилища прерывает оставшиеся пачки,
// повторов нет: upsert идемпотентен, перезапуск целиком безопасен.
// В режиме DryRun хранилище не трогается.
func (imp *Importer) Run(ctx context.Context, records []materials.Record, progress ProgressFunc) (Result, error) {
	size := imp.EffectiveBatchSize()
	total := len(records)
	batches := (total + size - 1) / size

	if imp.DryRun {
		utils.Info("Dry run, store untouched", "records", total, "batches", batches)
		return Result{DryRun: true, Batches: batches}, nil
	}
	if imp.Store == nil {
		return Result{}, fmt.Errorf("importer: no store configured")
	}

	var res Result
	for i := 0; i < batches; i++ {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("batch %d/%d: %w", i+1, batches, err)
		}

		start := i * size
		end := min(start+size, total)
		if err := imp.Store.UpsertBatch(ctx, records[start:end]); err != nil {
			utils.Error("Upsert batch failed", "batch", i+1, "batches", batches, "error", err)
			return res, fmt.Errorf("batch %d/%d: %w", i+1, batches, err)
		}

		res.Batches++
		res.Upserted = end
		utils.Debug("Upserted batch", "batch", i+1, "rows", end-start)
		if progress != nil {
			progress(end, total)
		}
	}

	utils.Info("Import complete", "records", res.Upserted, "batches", res.Batches)
	return res, nil
}
