package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Потолок размера пачки upsert, который принимает удалённое хранилище.
const MaxImportBatchSize = 1000

// AppConfig — корневая структура конфигурации.
// Она зеркалит структуру config.yaml.
type AppConfig struct {
	S3              S3Config        `yaml:"s3"`
	Storage         StorageConfig   `yaml:"storage"`
	Models          ModelsConfig    `yaml:"models"`
	Catalog         CatalogConfig   `yaml:"catalog"`
	Import          ImportConfig    `yaml:"import"`
	Sync            SyncConfig      `yaml:"sync"`
	Media           MediaConfig     `yaml:"media"`
	ImageProcessing ImageProcConfig `yaml:"image_processing"`
	App             AppSpecific     `yaml:"app"`
}

// S3Config — подключение к объектному хранилищу.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"` // Поддерживает ${VAR}
	SecretKey string `yaml:"secret_key"` // Поддерживает ${VAR}
	UseSSL    bool   `yaml:"use_ssl"`
}

// StorageConfig — бакеты и ключи каталога.
type StorageConfig struct {
	CacheBucket     string `yaml:"cache_bucket"`     // Бакет для артефактов (CSV, summary, image index)
	ImageBucket     string `yaml:"image_bucket"`     // Публичный бакет с картинками товаров
	ImagePrefix     string `yaml:"image_prefix"`     // Папка внутри ImageBucket
	ArtifactsPrefix string `yaml:"artifacts_prefix"` // Папка артефактов внутри CacheBucket
	IndexKey        string `yaml:"index_key"`        // Ключ image index в CacheBucket
	PublicBaseURL   string `yaml:"public_base_url"`  // Например https://xyz.supabase.co/storage/v1/object/public
}

// GetDefaults возвращает копию с дефолтами для незаполненных полей.
func (c *StorageConfig) GetDefaults() StorageConfig {
	result := *c

	if result.CacheBucket == "" {
		result.CacheBucket = "catalog-cache"
	}
	if result.ImageBucket == "" {
		result.ImageBucket = "catalog-images"
	}
	if result.ImagePrefix == "" {
		result.ImagePrefix = "products"
	}
	if result.ArtifactsPrefix == "" {
		result.ArtifactsPrefix = "catalog"
	}
	if result.IndexKey == "" {
		result.IndexKey = result.ArtifactsPrefix + "/longdan_image_index.json"
	}

	return result
}

// ModelsConfig — настройки AI моделей.
type ModelsConfig struct {
	DefaultClassifier string              `yaml:"default_classifier"` // Алиас модели для классификации категорий
	Definitions       map[string]ModelDef `yaml:"definitions"`        // Словарь определений моделей
}

// ModelDef — параметры конкретной модели.
type ModelDef struct {
	Provider    string        `yaml:"provider"`   // "deepseek", "openai" и т.д.
	ModelName   string        `yaml:"model_name"` // Реальное имя в API
	APIKey      string        `yaml:"api_key"`    // Поддерживает ${VAR}
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"` // "60s", "1m"
	BaseURL     string        `yaml:"base_url"`
}

// CatalogConfig — параметры очистки каталога.
type CatalogConfig struct {
	Currency         string `yaml:"currency"`
	SourceBaseURL    string `yaml:"source_base_url"`
	MissingImagesCap int    `yaml:"missing_images_cap"`
	VendorTopN       int    `yaml:"vendor_top_n"`
}

// GetDefaults возвращает копию с дефолтами для незаполненных полей.
func (c *CatalogConfig) GetDefaults() CatalogConfig {
	result := *c

	if result.Currency == "" {
		result.Currency = "GBP"
	}
	if result.SourceBaseURL == "" {
		result.SourceBaseURL = "https://longdan.co.uk"
	}
	if result.MissingImagesCap == 0 {
		result.MissingImagesCap = 200
	}
	if result.VendorTopN == 0 {
		result.VendorTopN = 50
	}

	return result
}

// ImportConfig — целевая таблица materials.
type ImportConfig struct {
	Driver    string `yaml:"driver"` // "postgres" или "sqlite"
	DSN       string `yaml:"dsn"`    // Поддерживает ${VAR}
	Table     string `yaml:"table"`
	BatchSize int    `yaml:"batch_size"`
}

// GetDefaults возвращает копию с дефолтами для незаполненных полей.
func (c *ImportConfig) GetDefaults() ImportConfig {
	result := *c

	if result.Driver == "" {
		result.Driver = "postgres"
	}
	if result.Table == "" {
		result.Table = "materials"
	}
	if result.BatchSize == 0 {
		result.BatchSize = 500
	}

	return result
}

// SyncConfig — зеркалирование картинок.
type SyncConfig struct {
	Workers       int    `yaml:"workers"`
	FetchTimeout  string `yaml:"fetch_timeout"`  // Timeout скачивания одной картинки, "30s"
	RateLimit     int    `yaml:"rate_limit"`     // Запросов в секунду к CDN, 0 — без лимита
	BurstLimit    int    `yaml:"burst_limit"`
	RetryAttempts int    `yaml:"retry_attempts"` // Повторов после первой попытки, 0 — дефолт 1, <0 — без повторов
	ProgressEvery int    `yaml:"progress_every"`
	UserAgent     string `yaml:"user_agent"`
}

// GetDefaults возвращает копию с дефолтами для незаполненных полей.
func (c *SyncConfig) GetDefaults() SyncConfig {
	result := *c

	if result.Workers == 0 {
		result.Workers = 8
	}
	if result.FetchTimeout == "" {
		result.FetchTimeout = "30s"
	}
	if result.BurstLimit == 0 {
		result.BurstLimit = result.Workers
	}
	// 0 в YAML неотличим от пропуска, поэтому "без повторов" задается -1
	if result.RetryAttempts == 0 {
		result.RetryAttempts = 1
	}
	if result.ProgressEvery == 0 {
		result.ProgressEvery = 100
	}
	if result.UserAgent == "" {
		result.UserAgent = "poncho-catalog/1.0"
	}

	return result
}

// FetchTimeoutDuration парсит FetchTimeout, падая обратно на 30s.
func (c SyncConfig) FetchTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.FetchTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// MediaConfig — кэш image index для серверов приложения.
type MediaConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// GetDefaults возвращает копию с дефолтами для незаполненных полей.
func (c *MediaConfig) GetDefaults() MediaConfig {
	result := *c
	if result.TTL == 0 {
		result.TTL = 900 * time.Second
	}
	return result
}

// ImageProcConfig — настройки обработки изображений.
// MaxWidth == 0 отключает ресайз при синхронизации.
type ImageProcConfig struct {
	MaxWidth int `yaml:"max_width"`
	Quality  int `yaml:"quality"`
}

// AppSpecific — общие настройки приложения.
type AppSpecific struct {
	Debug     bool   `yaml:"debug"`
	LogPrefix string `yaml:"log_prefix"`
}

// Load читает YAML файл, подставляет ENV переменные и возвращает готовую структуру.
//
// Перед подстановкой подгружается .env рядом с конфигом (если есть),
// затем .env из текущей директории. Уже выставленные переменные не перезаписываются.
func Load(path string) (*AppConfig, error) {
	// 1. Проверяем существование файла
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	// 2. Подтягиваем .env
	loadDotEnv(path)

	// 3. Читаем файл целиком
	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 4. os.ExpandEnv заменяет ${VAR} или $VAR на значение из системы.
	contentWithEnv := os.ExpandEnv(string(rawBytes))

	// 5. Парсим YAML в структуру
	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(contentWithEnv), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	cfg.applyDefaults()

	// 6. Валидируем критические настройки
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadOptional грузит конфиг, если файл есть. Отсутствующий файл дает Default().
// Утилиты очистки и импорта работают и без config.yaml.
func LoadOptional(path string) (*AppConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		loadDotEnv(path)
		cfg := Default()
		cfg.Import.DSN = os.Getenv("MATERIALS_DSN")
		return cfg, nil
	}
	return Load(path)
}

// Default возвращает конфигурацию только из дефолтов.
// Используется когда config.yaml не обязателен (dry-run, локальные прогоны).
func Default() *AppConfig {
	var cfg AppConfig
	cfg.applyDefaults()
	return &cfg
}

func loadDotEnv(configPath string) {
	candidates := []string{
		filepath.Join(filepath.Dir(configPath), ".env"),
		".env",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		// godotenv.Load не перезаписывает уже выставленные переменные
		_ = godotenv.Load(p)
	}
}

func (c *AppConfig) applyDefaults() {
	c.Storage = c.Storage.GetDefaults()
	c.Catalog = c.Catalog.GetDefaults()
	c.Import = c.Import.GetDefaults()
	c.Sync = c.Sync.GetDefaults()
	c.Media = c.Media.GetDefaults()
	if c.ImageProcessing.Quality == 0 {
		c.ImageProcessing.Quality = 85
	}
	if c.App.LogPrefix == "" {
		c.App.LogPrefix = "catalog"
	}
}

// validate проверяет обязательные поля.
func (c *AppConfig) validate() error {
	if c.Import.BatchSize < 1 || c.Import.BatchSize > MaxImportBatchSize {
		return fmt.Errorf("import.batch_size must be in [1, %d], got %d", MaxImportBatchSize, c.Import.BatchSize)
	}
	switch c.Import.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("import.driver must be 'postgres' or 'sqlite', got '%s'", c.Import.Driver)
	}
	if c.Sync.Workers < 1 {
		return fmt.Errorf("sync.workers must be positive, got %d", c.Sync.Workers)
	}
	if c.ImageProcessing.Quality < 1 || c.ImageProcessing.Quality > 100 {
		return fmt.Errorf("image_processing.quality must be in [1, 100], got %d", c.ImageProcessing.Quality)
	}
	if c.Models.DefaultClassifier != "" {
		if _, ok := c.Models.Definitions[c.Models.DefaultClassifier]; !ok {
			return fmt.Errorf("default_classifier model '%s' is not defined in definitions", c.Models.DefaultClassifier)
		}
	}
	return nil
}

// RequireS3 проверяет что подключение к S3 описано.
// Вызывается командами, которым реально нужно хранилище.
func (c *AppConfig) RequireS3() error {
	if c.S3.Endpoint == "" {
		return fmt.Errorf("s3.endpoint is required")
	}
	return nil
}

// GetClassifierModel возвращает модель классификатора по умолчанию или по имени.
func (c *AppConfig) GetClassifierModel(name string) (ModelDef, bool) {
	if name == "" {
		name = c.Models.DefaultClassifier
	}
	m, ok := c.Models.Definitions[name]
	return m, ok
}
