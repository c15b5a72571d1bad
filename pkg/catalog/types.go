// Package catalog очищает сырую выгрузку вариантов товаров и готовит артефакты:
// очищенный CSV, JSON-сводку и индекс картинок (SKU → метаданные изображения).
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RawVariantRow — одна строка сырой выгрузки поставщика.
// Поля хранятся как есть, разбор цены и флагов делает Cleaner.
type RawVariantRow struct {
	SKU           string
	ProductTitle  string
	VariantTitle  string
	VariantID     string
	Vendor        string
	ProductType   string
	Tags          string
	Price         string
	Available     string
	ImageURL      string
	ProductHandle string
}

// rawFromRecord собирает строку из записи с именованными колонками.
func rawFromRecord(rec map[string]string) RawVariantRow {
	return RawVariantRow{
		SKU:           rec["sku"],
		ProductTitle:  rec["product_title"],
		VariantTitle:  rec["variant_title"],
		VariantID:     rec["variant_id"],
		Vendor:        rec["vendor"],
		ProductType:   rec["product_type"],
		Tags:          rec["tags"],
		Price:         rec["price"],
		Available:     rec["available"],
		ImageURL:      rec["image_url"],
		ProductHandle: rec["product_handle"],
	}
}

// Entry — очищенная запись каталога. SKU уникален в пределах прогона.
type Entry struct {
	SKU               string  `json:"sku"`
	Name              string  `json:"name"`
	CanonicalCategory string  `json:"canonical_category"`
	Subcategory       string  `json:"subcategory"`
	Department        string  `json:"department"`
	Vendor            string  `json:"vendor"`
	Price             float64 `json:"price"`
	Currency          string  `json:"currency"`
	IsWholesale       bool    `json:"is_wholesale"`
	CaseSize          *int    `json:"case_size"` // nil, если фасовка не распознана
	UnitSize          *string `json:"unit_size"` // например "500ml"
	Unit              string  `json:"unit"`
	TemperatureZone   string  `json:"temperature_zone"`
	Tags              string  `json:"tags"`
	ImageURL          string  `json:"image_url"`
	ImageFilename     string  `json:"image_filename"`
	SourceURL         string  `json:"source_url"`
}

// CleanedColumns — порядок колонок очищенного CSV. Менять нельзя: импортер и
// внешние потребители читают файл по этому заголовку.
var CleanedColumns = []string{
	"sku", "name", "canonical_category", "subcategory", "department", "vendor",
	"price", "currency", "is_wholesale", "case_size", "unit_size", "unit",
	"temperature_zone", "tags", "image_url", "image_filename", "source_url",
}

// ImageIndexEntry — метаданные картинки одного SKU.
type ImageIndexEntry struct {
	ImageURL      string `json:"image_url"`
	ImageFilename string `json:"image_filename"`
	SourceURL     string `json:"source_url"`
}

// ImageIndex — SKU → метаданные картинки. Заменяется целиком, не патчится.
type ImageIndex map[string]ImageIndexEntry

// NameCount — пара [имя, количество]. В JSON пишется массивом из двух элементов.
type NameCount struct {
	Name  string
	Count int
}

// MarshalJSON не экранирует HTML: "Noodles & Rice" остается как есть.
func (nc NameCount) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([2]any{nc.Name, nc.Count}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (nc *NameCount) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("expected [name, count] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &nc.Name); err != nil {
		return fmt.Errorf("pair name: %w", err)
	}
	if err := json.Unmarshal(pair[1], &nc.Count); err != nil {
		return fmt.Errorf("pair count: %w", err)
	}
	return nil
}

// Summary — сводка прогона очистки.
type Summary struct {
	TotalRows            int                 `json:"total_rows"`
	UniqueSKUs           int                 `json:"unique_skus"`
	MissingImages        []string            `json:"missing_images"`
	CategoryCounts       []NameCount         `json:"category_counts"`
	DepartmentCounts     []NameCount         `json:"department_counts"`
	VendorCounts         []NameCount         `json:"vendor_counts"`
	UncategorizedSamples map[string][]string `json:"uncategorized_samples"`
}
