package catalog

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ilkoid/poncho-catalog/pkg/classifier"
	"github.com/ilkoid/poncho-catalog/pkg/utils"
)

// ErrNoSKU — строка выгрузки без SKU. Строка пропускается, прогон продолжается.
var ErrNoSKU = errors.New("row has no sku")

const (
	defaultTitle   = "default title"
	unknownVendor  = "Unknown"
	unknownRawType = "Unknown"
	defaultUnit    = "unit"
	maxSamples     = 3
)

// Options управляют прогоном очистки.
type Options struct {
	Limit            int  // остановиться после N уникальных SKU (0 — без лимита)
	UseResolver      bool // спросить внешний классификатор про нераспознанные категории
	Currency         string
	SourceBaseURL    string
	MissingImagesCap int
	VendorTopN       int
}

// Cleaner превращает сырые строки в очищенные записи каталога.
type Cleaner struct {
	Engine   *classifier.Engine
	Resolver CategoryResolver
	Options  Options
}

// Result — итог очистки.
type Result struct {
	Entries   []Entry // в порядке первого появления SKU
	Summary   Summary
	Overrides map[string]string // ответ резолвера, nil если он не вызывался
}

// Index строит индекс картинок по записям результата.
func (r *Result) Index() ImageIndex {
	return BuildImageIndex(r.Entries)
}

// NewCleaner создает очиститель со встроенными правилами.
func NewCleaner(resolver CategoryResolver, opts Options) *Cleaner {
	return &Cleaner{Engine: classifier.Default(), Resolver: resolver, Options: opts}
}

// Clean обрабатывает строки выгрузки.
//
// Дубликаты SKU: побеждает последняя строка, позиция остается от первой.
// Если UseResolver включен и резолвер упал, возвращается частичный результат
// (без переопределений) вместе с *ClassificationError.
func (c *Cleaner) Clean(ctx context.Context, rows []RawVariantRow) (*Result, error) {
	engine := c.Engine
	if engine == nil {
		engine = classifier.Default()
	}
	opts := c.Options

	summary := Summary{
		MissingImages:        []string{},
		UncategorizedSamples: map[string][]string{},
	}
	positions := make(map[string]int)
	var entries []Entry
	rawUncategorized := make(map[string]int)
	skipped := 0

	for _, raw := range rows {
		summary.TotalRows++

		entry, err := c.normalize(engine, raw)
		if errors.Is(err, ErrNoSKU) {
			skipped++
			continue
		}

		if entry.ImageURL == "" {
			summary.MissingImages = append(summary.MissingImages, entry.SKU)
		}

		if entry.CanonicalCategory == classifier.Fallback {
			rawCat := strings.TrimSpace(raw.ProductType)
			if rawCat == "" {
				rawCat = unknownRawType
			}
			rawUncategorized[rawCat]++
			if samples := summary.UncategorizedSamples[rawCat]; len(samples) < maxSamples {
				summary.UncategorizedSamples[rawCat] = append(samples, entry.Name)
			}
		}

		if pos, ok := positions[entry.SKU]; ok {
			entries[pos] = entry
		} else {
			positions[entry.SKU] = len(entries)
			entries = append(entries, entry)
		}

		if opts.Limit > 0 && len(entries) >= opts.Limit {
			break
		}
	}

	result := &Result{Entries: entries}

	var resolveErr error
	if opts.UseResolver && len(rawUncategorized) > 0 {
		overrides, err := c.resolve(ctx, engine, rawUncategorized)
		if err != nil {
			resolveErr = err
			utils.Error("Category classification failed, overrides skipped", "error", err)
		} else {
			result.Overrides = overrides
			applied := applyOverrides(engine, entries, overrides)
			utils.Info("Category overrides applied", "returned", len(overrides), "applied", applied)
		}
	}

	summary.UniqueSKUs = len(entries)
	if limit := opts.MissingImagesCap; limit > 0 && len(summary.MissingImages) > limit {
		summary.MissingImages = summary.MissingImages[:limit]
	}
	summary.CategoryCounts = countBy(entries, func(e Entry) string { return e.CanonicalCategory }, 0)
	summary.DepartmentCounts = countBy(entries, func(e Entry) string { return e.Department }, 0)
	summary.VendorCounts = countBy(entries, func(e Entry) string { return e.Vendor }, opts.VendorTopN)
	result.Summary = summary

	utils.Info("Catalog cleaned",
		"total_rows", summary.TotalRows,
		"unique_skus", summary.UniqueSKUs,
		"skipped_no_sku", skipped,
		"uncategorized_raw", len(rawUncategorized))

	return result, resolveErr
}

func (c *Cleaner) resolve(ctx context.Context, engine *classifier.Engine, rawCounts map[string]int) (map[string]string, error) {
	if c.Resolver == nil {
		return nil, &ClassificationError{Kind: ClassificationRequest, Err: errors.New("no category resolver configured")}
	}

	raw := make([]string, 0, len(rawCounts))
	for name := range rawCounts {
		raw = append(raw, name)
	}
	sort.Strings(raw)

	overrides, err := c.Resolver.Resolve(ctx, raw, engine.Canonical())
	if err != nil {
		var ce *ClassificationError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, &ClassificationError{Kind: ClassificationRequest, Err: err}
	}
	return overrides, nil
}

// applyOverrides трогает только записи, оставшиеся в Fallback.
// Ключ ищется по подкатегории, затем по категории. Неканонические значения игнорируются.
func applyOverrides(engine *classifier.Engine, entries []Entry, overrides map[string]string) int {
	applied := 0
	for i := range entries {
		e := &entries[i]
		if e.CanonicalCategory != classifier.Fallback {
			continue
		}
		newCat := overrides[e.Subcategory]
		if newCat == "" {
			newCat = overrides[e.CanonicalCategory]
		}
		if newCat == "" || !engine.IsCanonical(newCat) {
			continue
		}
		e.CanonicalCategory = newCat
		e.Department = classifier.Department(newCat)
		applied++
	}
	return applied
}

// normalize строит очищенную запись из сырой строки.
func (c *Cleaner) normalize(engine *classifier.Engine, raw RawVariantRow) (Entry, error) {
	sku := strings.TrimSpace(raw.SKU)
	if sku == "" {
		return Entry{}, ErrNoSKU
	}

	name := DisplayName(raw.ProductTitle, raw.VariantTitle, sku)
	tags := CleanTags(raw.Tags)
	productType := strings.TrimSpace(raw.ProductType)

	canonical := engine.GuessCategory(strings.Join([]string{raw.ProductType, tags, name}, " "))
	subcategory := productType
	if subcategory == "" {
		subcategory = canonical
	}

	entry := Entry{
		SKU:               sku,
		Name:              name,
		CanonicalCategory: canonical,
		Subcategory:       subcategory,
		Department:        classifier.Department(canonical),
		Vendor:            NormalizeVendor(raw.Vendor),
		Price:             ParsePrice(raw.Price),
		Currency:          c.Options.Currency,
		IsWholesale: strings.Contains(strings.ToLower(productType), "wholesale") ||
			strings.Contains(strings.ToLower(tags), "badge_wholesale"),
		CaseSize:        classifier.ExtractCaseSize(name),
		Unit:            defaultUnit,
		TemperatureZone: classifier.TemperatureFromTags(tags, raw.ProductType),
		Tags:            tags,
		ImageURL:        strings.TrimSpace(raw.ImageURL),
		ImageFilename:   ImageFilename(raw.ProductHandle, sku),
		SourceURL:       SourceURL(c.Options.SourceBaseURL, raw.ProductHandle),
	}

	if size, unit, ok := classifier.ExtractUnitInfo(name); ok {
		entry.UnitSize = &size
		entry.Unit = unit
	}

	return entry, nil
}

// DisplayName добавляет вариант к названию, если он не "Default Title"
// и не содержится в названии.
func DisplayName(productTitle, variantTitle, sku string) string {
	name := strings.TrimSpace(productTitle)
	if name == "" {
		name = sku
	}
	variant := strings.TrimSpace(variantTitle)
	lowerVariant := strings.ToLower(variant)
	if variant != "" && lowerVariant != defaultTitle && !strings.Contains(strings.ToLower(name), lowerVariant) {
		name = name + " - " + variant
	}
	return name
}

// NormalizeVendor приводит поставщика к Title Case, пустой → "Unknown".
func NormalizeVendor(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return unknownVendor
	}
	return TitleCase(value)
}

// TitleCase делает заглавной первую букву каждого слова, остальные строчными.
// Словом считается любая непрерывная последовательность букв: "o'brien" → "O'Brien".
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		isLetter := unicode.IsLetter(r)
		switch {
		case isLetter && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
		case isLetter:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return b.String()
}

// CleanTags убирает пустые и повторяющиеся теги, сортирует, склеивает через запятую.
func CleanTags(raw string) string {
	seen := make(map[string]struct{})
	var parts []string
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		parts = append(parts, tag)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// ParsePrice разбирает цену. Мусор и не-конечные значения дают 0.
// Результат округлен до копеек, половина — к четному (0.125 → 0.12).
func ParsePrice(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.RoundToEven(v*100) / 100
}

// ImageFilename — детерминированное имя картинки: {handle|sku}-{sku}.jpg.
func ImageFilename(handle, sku string) string {
	base := strings.TrimSpace(handle)
	if base == "" {
		base = sku
	}
	return strings.ReplaceAll(base, "/", "-") + "-" + sku + ".jpg"
}

// SourceURL — страница товара у поставщика. Без handle ссылки нет.
func SourceURL(baseURL, handle string) string {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/products/" + handle
}

// countBy считает частоты: по убыванию количества, при равенстве по имени.
// topN > 0 обрезает список.
func countBy(entries []Entry, key func(Entry) string, topN int) []NameCount {
	counts := make(map[string]int)
	for _, e := range entries {
		counts[key(e)]++
	}

	out := make([]NameCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, NameCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})

	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
