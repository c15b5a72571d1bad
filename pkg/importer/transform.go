// Package importer превращает очищенный каталог в записи materials и
// загружает их пачками с upsert по SKU.
package importer

import (
	"strconv"
	"strings"

	"github.com/ilkoid/poncho-catalog/pkg/catalog"
	"github.com/ilkoid/poncho-catalog/pkg/classifier"
	"github.com/ilkoid/poncho-catalog/pkg/derive"
	"github.com/ilkoid/poncho-catalog/pkg/materials"
)

// DefaultCategory — категория, если в строке нет ни canonical_category, ни product_type.
const DefaultCategory = "General Grocery"

// Stats — итоги разбора CSV.
type Stats struct {
	TotalRows int
	Skipped   int // строки без SKU
	Unique    int
}

// Transform строит запись materials из строки CSV.
//
// Политика единая для всех полей: значение из CSV, если оно есть, иначе
// выводится заново (CSV мог быть поправлен руками). Без SKU возвращает false.
func Transform(row map[string]string) (materials.Record, bool) {
	sku := field(row, "sku")
	if sku == "" {
		return materials.Record{}, false
	}

	name := buildName(row, sku)
	tags := splitTags(row["tags"])

	category := field(row, "canonical_category")
	if category == "" {
		category = field(row, "product_type")
	}
	if category == "" {
		category = DefaultCategory
	}

	temperature := field(row, "temperature_zone")
	if temperature == "" {
		temperature = classifier.TemperatureFromKeywords(tags, category)
	}
	temperature = catalog.TitleCase(temperature)

	unit := field(row, "unit")
	if unit == "" {
		unit = classifier.DetermineUnit(name)
	}
	unit = strings.ToLower(unit)

	variantID := field(row, "variant_id")
	if variantID == "" {
		variantID = sku
	}
	quantity := derive.Quantity(sku, variantID, parseBool(row["available"]), parsePrice(row["price"]))

	location := field(row, "location")
	if location == "" {
		location = derive.Location(category, sku)
	}

	uom := field(row, "unit_of_measure")
	if uom == "" {
		uom = unit
	}

	return materials.Record{
		Name:            name,
		SKU:             sku,
		Category:        category,
		Quantity:        quantity,
		Unit:            unit,
		SafeStock:       derive.SafeStock(quantity, category),
		Location:        location,
		UnitOfMeasure:   uom,
		TemperatureZone: temperature,
	}, true
}

// Load превращает строки в записи с дедупликацией по SKU.
// Побеждает последняя строка, порядок — по первому появлению SKU.
// limit > 0 останавливает разбор после limit уникальных SKU.
func Load(rows []map[string]string, limit int) ([]materials.Record, Stats) {
	var (
		stats     Stats
		records   []materials.Record
		positions = make(map[string]int)
	)

	for _, row := range rows {
		stats.TotalRows++
		rec, ok := Transform(row)
		if !ok {
			stats.Skipped++
			continue
		}

		if pos, seen := positions[rec.SKU]; seen {
			records[pos] = rec
		} else {
			positions[rec.SKU] = len(records)
			records = append(records, rec)
		}

		if limit > 0 && len(records) >= limit {
			break
		}
	}

	stats.Unique = len(records)
	return records, stats
}

func field(row map[string]string, key string) string {
	return strings.TrimSpace(row[key])
}

// buildName: очищенный CSV несет готовое name, сырой — product_title + variant_title.
func buildName(row map[string]string, sku string) string {
	title := field(row, "product_title")
	if title == "" {
		title = field(row, "name")
	}
	variant := field(row, "variant_title")
	lowerVariant := strings.ToLower(variant)

	if variant == "" || lowerVariant == "default title" {
		if title == "" {
			return sku
		}
		return title
	}
	if strings.Contains(strings.ToLower(title), lowerVariant) {
		return title
	}
	return strings.Trim(title+" - "+variant, " -")
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}

// parsePrice без округления: порог дорогого товара (50) сравнивается с исходным значением.
func parsePrice(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return v
}
