// Package media — кэш индекса картинок для серверов приложений.
//
// Индекс скачивается из кэш-бакета и живет TTL. Читатели работают без блокировок
// через атомарный снимок, обновления сериализованы мьютексом.
package media

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ilkoid/poncho-catalog/pkg/catalog"
	"github.com/ilkoid/poncho-catalog/pkg/config"
	"github.com/ilkoid/poncho-catalog/pkg/utils"
)

// DefaultTTL — время жизни индекса по умолчанию.
const DefaultTTL = 900 * time.Second

// State — состояние кэша.
type State int

const (
	StateEmpty State = iota
	StateLoaded
	StateStale
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateStale:
		return "stale"
	default:
		return "empty"
	}
}

// IndexSource отдает сырой JSON индекса. s3storage.Client реализует его.
type IndexSource interface {
	DownloadFile(ctx context.Context, bucket, key string) ([]byte, error)
}

// Media — метаданные картинки SKU плюс публичный URL в хранилище.
type Media struct {
	SKU             string `json:"sku"`
	ImageURL        string `json:"image_url"`
	ImageFilename   string `json:"image_filename"`
	SourceURL       string `json:"source_url"`
	StorageImageURL string `json:"storage_image_url,omitempty"`
}

// Options кэша.
type Options struct {
	Bucket        string // кэш-бакет с индексом
	IndexKey      string
	ImageBucket   string
	ImagePrefix   string
	PublicBaseURL string // пусто — StorageImageURL не заполняется
	TTL           time.Duration
	Now           func() time.Time
}

// OptionsFromConfig собирает опции из секций storage и media.
func OptionsFromConfig(storage config.StorageConfig, m config.MediaConfig) Options {
	return Options{
		Bucket:        storage.CacheBucket,
		IndexKey:      storage.IndexKey,
		ImageBucket:   storage.ImageBucket,
		ImagePrefix:   storage.ImagePrefix,
		PublicBaseURL: storage.PublicBaseURL,
		TTL:           m.GetDefaults().TTL,
	}
}

type snapshot struct {
	index    catalog.ImageIndex
	loadedAt time.Time
}

// Cache — один экземпляр на процесс, передается потребителям явно.
type Cache struct {
	source IndexSource
	opts   Options

	mu      sync.Mutex // сериализует обновления
	current atomic.Pointer[snapshot]
}

// New создает пустой кэш.
func New(source IndexSource, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{source: source, opts: opts}
}

// State возвращает текущее состояние.
func (c *Cache) State() State {
	snap := c.current.Load()
	if snap == nil {
		return StateEmpty
	}
	if c.opts.Now().Sub(snap.loadedAt) >= c.opts.TTL {
		return StateStale
	}
	return StateLoaded
}

// Size — число SKU в текущем снимке.
func (c *Cache) Size() int {
	if snap := c.current.Load(); snap != nil {
		return len(snap.index)
	}
	return 0
}

// LoadedAt — время последней успешной загрузки (нулевое, если не было).
func (c *Cache) LoadedAt() time.Time {
	if snap := c.current.Load(); snap != nil {
		return snap.loadedAt
	}
	return time.Time{}
}

// Lookup возвращает медиа для SKU. Ошибок наружу не отдает:
// неудачное обновление оставляет прежний (возможно устаревший) снимок.
func (c *Cache) Lookup(ctx context.Context, sku string) (*Media, bool) {
	if sku == "" {
		return nil, false
	}

	if c.State() != StateLoaded {
		_ = c.refresh(ctx, false)
	}

	snap := c.current.Load()
	if snap == nil {
		return nil, false
	}
	entry, ok := snap.index[sku]
	if !ok {
		return nil, false
	}

	return &Media{
		SKU:             sku,
		ImageURL:        entry.ImageURL,
		ImageFilename:   entry.ImageFilename,
		SourceURL:       entry.SourceURL,
		StorageImageURL: c.StorageURL(entry.ImageFilename),
	}, true
}

// Refresh принудительно перечитывает индекс, игнорируя TTL.
// Например, после прогона синхронизации картинок.
func (c *Cache) Refresh(ctx context.Context) error {
	return c.refresh(ctx, true)
}

func (c *Cache) refresh(ctx context.Context, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Пока ждали блокировку, индекс мог обновить другой читатель
	if !force && c.State() == StateLoaded {
		return nil
	}
	if c.source == nil {
		return ErrNoSource
	}

	data, err := c.source.DownloadFile(ctx, c.opts.Bucket, c.opts.IndexKey)
	if err != nil {
		utils.Warn("Failed to load catalog image index, keeping previous",
			"bucket", c.opts.Bucket, "key", c.opts.IndexKey, "cached", c.Size(), "error", err)
		return err
	}

	index, err := catalog.ParseImageIndex(data)
	if err != nil {
		utils.Warn("Catalog image index is not valid JSON, keeping previous",
			"key", c.opts.IndexKey, "cached", c.Size(), "error", err)
		return err
	}

	c.current.Store(&snapshot{index: index, loadedAt: c.opts.Now()})
	utils.Info("Catalog image index loaded", "skus", len(index))
	return nil
}

// StorageURL строит публичный URL картинки: {base}/{image_bucket}/{key}.
func (c *Cache) StorageURL(filename string) string {
	base := strings.TrimRight(c.opts.PublicBaseURL, "/")
	if base == "" {
		return ""
	}
	key := utils.StorageKey(c.opts.ImagePrefix, filename)
	if key == "" {
		return ""
	}
	if bucket := strings.Trim(c.opts.ImageBucket, "/"); bucket != "" {
		return base + "/" + bucket + "/" + key
	}
	return base + "/" + key
}

// ErrNoSource — кэш создан без источника индекса.
var ErrNoSource = errors.New("media cache has no index source")
