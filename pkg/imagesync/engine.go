package imagesync

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ilkoid/poncho-catalog/pkg/catalog"
	"github.com/ilkoid/poncho-catalog/pkg/s3storage"
	"github.com/ilkoid/poncho-catalog/pkg/utils"
)

// DefaultWorkers — ширина пула по умолчанию.
const DefaultWorkers = 8

// DefaultProgressEvery — шаг отчета о прогрессе.
const DefaultProgressEvery = 100

// ObjectStore — часть хранилища, нужная синхронизации.
// s3storage.Client реализует его.
type ObjectStore interface {
	ListFiles(ctx context.Context, bucket, prefix string) ([]s3storage.StoredObject, error)
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) error
	EnsureBucket(ctx context.Context, bucket string) error
}

var _ ObjectStore = (*s3storage.Client)(nil)

// ResizeOptions включают пережатие перед загрузкой. MaxWidth 0 — без пережатия.
type ResizeOptions struct {
	MaxWidth int
	Quality  int
}

// Engine — синхронизация индекса картинок с бакетом.
type Engine struct {
	Store   ObjectStore
	Fetcher Fetcher
	Resize  ResizeOptions
}

// Options одного прогона.
type Options struct {
	Bucket        string
	Prefix        string
	Limit         int // только первые N SKU (в порядке сортировки)
	Workers       int
	SkipExisting  bool
	ProgressEvery int
	Progress      func(Progress)
}

// Progress — снимок счетчиков.
type Progress struct {
	Processed int
	Total     int
	Uploaded  int
	Skipped   int
	Errors    int
}

// Failure — ошибка по одному SKU. Прогон не прерывает.
type Failure struct {
	SKU string
	URL string
	Err error
}

// Report — итог прогона.
type Report struct {
	Total    int
	Uploaded int
	Skipped  int
	Errors   int
	Failures []Failure
	Duration time.Duration
}

type outcome int

const (
	outcomeUploaded outcome = iota
	outcomeSkipped
	outcomeFailed
)

type job struct {
	sku   string
	entry catalog.ImageIndexEntry
}

type result struct {
	job     job
	outcome outcome
	err     error
}

// tally — счетчики прогона. Пишет только агрегатор, читать можно откуда угодно.
type tally struct {
	uploaded atomic.Int64
	skipped  atomic.Int64
	errors   atomic.Int64
}

func (t *tally) add(o outcome) {
	switch o {
	case outcomeUploaded:
		t.uploaded.Add(1)
	case outcomeSkipped:
		t.skipped.Add(1)
	default:
		t.errors.Add(1)
	}
}

func (t *tally) snapshot(total int) Progress {
	p := Progress{
		Total:    total,
		Uploaded: int(t.uploaded.Load()),
		Skipped:  int(t.skipped.Load()),
		Errors:   int(t.errors.Load()),
	}
	p.Processed = p.Uploaded + p.Skipped + p.Errors
	return p
}

// Items возвращает SKU с непустым image_url, отсортированные, с учетом лимита.
func Items(index catalog.ImageIndex, limit int) []string {
	skus := make([]string, 0, len(index))
	for sku, entry := range index {
		if entry.ImageURL == "" {
			continue
		}
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	if limit > 0 && len(skus) > limit {
		skus = skus[:limit]
	}
	return skus
}

// Run синхронизирует картинки индекса.
//
// Фатальны только ошибки создания бакета и листинга существующих ключей.
// Ошибки отдельных SKU считаются и попадают в Report.Failures.
// При отмене ctx новые SKU не берутся, начатые дорабатывают; возвращается ctx.Err().
func (e *Engine) Run(ctx context.Context, index catalog.ImageIndex, opts Options) (Report, error) {
	started := time.Now()
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	every := opts.ProgressEvery
	if every <= 0 {
		every = DefaultProgressEvery
	}

	skus := Items(index, opts.Limit)
	report := Report{Total: len(skus)}

	if err := e.Store.EnsureBucket(ctx, opts.Bucket); err != nil {
		return report, fmt.Errorf("ensure bucket %s: %w", opts.Bucket, err)
	}

	existing := map[string]struct{}{}
	if opts.SkipExisting {
		objects, err := e.Store.ListFiles(ctx, opts.Bucket, opts.Prefix)
		if err != nil {
			return report, fmt.Errorf("list existing objects: %w", err)
		}
		for _, obj := range objects {
			existing[obj.Key] = struct{}{}
		}
		utils.Info("Existing objects gathered", "bucket", opts.Bucket, "prefix", opts.Prefix, "count", len(existing))
	}

	jobs := make(chan job)
	results := make(chan result, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- e.process(ctx, j, opts, existing)
			}
		}()
	}

	// Подача задач: остановка по отмене контекста
	go func() {
		defer close(jobs)
		for _, sku := range skus {
			select {
			case <-ctx.Done():
				return
			case jobs <- job{sku: sku, entry: index[sku]}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Единственный агрегатор результатов
	var t tally
	for r := range results {
		t.add(r.outcome)
		if r.outcome == outcomeFailed {
			report.Failures = append(report.Failures, Failure{SKU: r.job.sku, URL: r.job.entry.ImageURL, Err: r.err})
		}
		p := t.snapshot(report.Total)
		if opts.Progress != nil && p.Processed%every == 0 {
			opts.Progress(p)
		}
	}

	final := t.snapshot(report.Total)
	report.Uploaded = final.Uploaded
	report.Skipped = final.Skipped
	report.Errors = final.Errors
	report.Duration = time.Since(started)

	utils.Info("Image sync finished",
		"total", report.Total,
		"uploaded", report.Uploaded,
		"skipped", report.Skipped,
		"errors", report.Errors,
		"duration_ms", report.Duration.Milliseconds())

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// process обрабатывает один SKU. Ошибки не пробрасываются, только считаются.
func (e *Engine) process(ctx context.Context, j job, opts Options, existing map[string]struct{}) result {
	filename := j.entry.ImageFilename
	if filename == "" {
		filename = j.sku + ".jpg"
	}
	key := utils.StorageKey(opts.Prefix, filename)
	if key == "" {
		utils.Warn("Invalid storage key, skipped", "sku", j.sku, "filename", filename)
		return result{job: j, outcome: outcomeSkipped}
	}

	if _, ok := existing[key]; ok {
		return result{job: j, outcome: outcomeSkipped}
	}

	data, contentType, err := e.Fetcher.Fetch(ctx, j.entry.ImageURL)
	if err != nil {
		utils.Warn("Image fetch failed", "sku", j.sku, "url", j.entry.ImageURL, "error", err)
		return result{job: j, outcome: outcomeFailed, err: err}
	}

	if e.Resize.MaxWidth > 0 {
		resized, err := utils.ResizeImage(data, e.Resize.MaxWidth, e.Resize.Quality)
		if err != nil {
			utils.Warn("Image resize failed", "sku", j.sku, "error", err)
			return result{job: j, outcome: outcomeFailed, err: err}
		}
		data, contentType = resized, utils.JPEGContentType
	}

	if err := e.Store.UploadFile(ctx, opts.Bucket, key, data, contentType); err != nil {
		utils.Warn("Image upload failed", "sku", j.sku, "key", key, "error", err)
		return result{job: j, outcome: outcomeFailed, err: err}
	}

	utils.Debug("Image uploaded", "sku", j.sku, "key", key, "bytes", len(data))
	return result{job: j, outcome: outcomeUploaded}
}
