package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ilkoid/poncho-catalog/pkg/catalog"
	"github.com/ilkoid/poncho-catalog/pkg/config"
	"github.com/ilkoid/poncho-catalog/pkg/materials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	batches [][]materials.Record
	failAt  int // номер пачки (с 1), на которой вернуть ошибку
}

func (f *fakeStore) UpsertBatch(_ context.Context, records []materials.Record) error {
	if f.failAt > 0 && len(f.batches)+1 == f.failAt {
		return errors.New("remote store unavailable")
	}
	f.batches = append(f.batches, append([]materials.Record(nil), records...))
	return nil
}

func makeRecords(n int) []materials.Record {
	recs := make([]materials.Record, n)
	for i := range recs {
		recs[i] = materials.Record{SKU: fmt.Sprintf("SKU-%03d", i)}
	}
	return recs
}

func TestEffectiveBatchSize(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultBatchSize},
		{-5, DefaultBatchSize},
		{1, 1},
		{250, 250},
		{5000, config.MaxImportBatchSize},
	}
	for _, tt := range tests {
		imp := &Importer{BatchSize: tt.in}
		assert.Equal(t, tt.want, imp.EffectiveBatchSize(), "batch size %d", tt.in)
	}
}

func TestRun_Batches(t *testing.T) {
	store := &fakeStore{}
	imp := &Importer{Store: store, BatchSize: 2}

	var progress []int
	res, err := imp.Run(context.Background(), makeRecords(5), func(done, total int) {
		assert.Equal(t, 5, total)
		progress = append(progress, done)
	})
	require.NoError(t, err)

	assert.Equal(t, Result{Batches: 3, Upserted: 5}, res)
	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[2], 1)
	assert.Equal(t, []int{2, 4, 5}, progress)
}

func TestRun_StoreErrorAbortsRemaining(t *testing.T) {
	store := &fakeStore{failAt: 2}
	imp := &Importer{Store: store, BatchSize: 2}

	res, err := imp.Run(context.Background(), makeRecords(6), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch 2/3")
	assert.Len(t, store.batches, 1)
	assert.Equal(t, 2, res.Upserted)
}

func TestRun_DryRunNeverTouchesStore(t *testing.T) {
	store := &fakeStore{failAt: 1}
	imp := &Importer{Store: store, DryRun: true}

	res, err := imp.Run(context.Background(), makeRecords(3), nil)
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Empty(t, store.batches)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &fakeStore{}
	_, err := (&Importer{Store: store}).Run(ctx, makeRecords(3), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.batches)
}

// Сквозной сценарий: очистка сырой выгрузки → CSV → импорт в sqlite, дважды.
func TestCleanThenImport_RoundTripIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	rows, err := catalog.ReadRawRows("../catalog/testdata/longdan_raw.csv")
	require.NoError(t, err)
	res, err := catalog.NewCleaner(nil, catalog.Options{Currency: "GBP", SourceBaseURL: "https://longdan.co.uk"}).Clean(ctx, rows)
	require.NoError(t, err)

	csvPath := filepath.Join(dir, "clean.csv")
	require.NoError(t, catalog.WriteCleanedCSV(csvPath, res.Entries))

	db, err := materials.Open(config.ImportConfig{Driver: "sqlite", DSN: filepath.Join(dir, "wms.db")}, false)
	require.NoError(t, err)
	repo := materials.NewRepository(db, "")
	require.NoError(t, repo.AutoMigrate(ctx))

	importOnce := func() {
		recs, err := catalog.ReadRecords(csvPath)
		require.NoError(t, err)
		records, stats := Load(recs, 0)
		require.Equal(t, 3, stats.Unique)

		result, err := (&Importer{Store: repo, BatchSize: 2}).Run(ctx, records, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Upserted)
	}

	importOnce()
	importOnce()

	n, err := repo.CountSKUs(ctx, []string{"LD-0001", "LD-0002", "LD-0003"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	for _, sku := range []string{"LD-0001", "LD-0002", "LD-0003"} {
		rec, err := repo.FindBySKU(ctx, sku)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, rec.Quantity, 5, sku)
		assert.GreaterOrEqual(t, rec.SafeStock, 5, sku)
	}

	gyoza, err := repo.FindBySKU(ctx, "LD-0002")
	require.NoError(t, err)
	assert.Equal(t, "Frozen & Chilled", gyoza.Category)
	assert.Equal(t, "Frozen", gyoza.TemperatureZone)
	assert.Regexp(t, `^FR-\d{2}$`, gyoza.Location)
}
