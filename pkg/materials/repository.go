package materials

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/ilkoid/poncho-catalog/pkg/config"
)

// ErrNotFound — записи с таким SKU нет.
var ErrNotFound = errors.New("material not found")

// Open подключается к базе по секции import конфига.
func Open(cfg config.ImportConfig, debug bool) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("import.dsn is required")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Repository работает с таблицей материалов.
type Repository struct {
	db    *gorm.DB
	table string
}

// NewRepository создает репозиторий. Пустое имя таблицы — DefaultTable.
func NewRepository(db *gorm.DB, table string) *Repository {
	if table == "" {
		table = DefaultTable
	}
	return &Repository{db: db, table: table}
}

func (r *Repository) query(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.table)
}

// AutoMigrate создает таблицу и уникальный индекс по SKU.
func (r *Repository) AutoMigrate(ctx context.Context) error {
	if err := r.query(ctx).AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("migrate %s: %w", r.table, err)
	}
	return nil
}

// UpsertBatch вставляет пачку, при конфликте по SKU обновляет производные поля.
// Пачка идет одним INSERT ... ON CONFLICT (sku) DO UPDATE.
func (r *Repository) UpsertBatch(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := make([]Record, len(records))
	copy(batch, records)

	return r.query(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns(derivedColumns),
	}).Create(&batch).Error
}

// Count возвращает число строк в таблице.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.query(ctx).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// CountSKUs считает строки с перечисленными SKU.
func (r *Repository) CountSKUs(ctx context.Context, skus []string) (int64, error) {
	var n int64
	if err := r.query(ctx).Where("sku IN ?", skus).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// FindBySKU возвращает запись или ErrNotFound.
func (r *Repository) FindBySKU(ctx context.Context, sku string) (*Record, error) {
	var rec Record
	err := r.query(ctx).Where("sku = ?", sku).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sku)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
