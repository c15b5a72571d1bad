// Package derive вычисляет синтетические, но воспроизводимые атрибуты склада:
// остаток, страховой запас и ячейку хранения.
//
// Хэш фиксирован (первые 12 hex-символов SHA-256), поэтому значения совпадают
// между запусками и между реализациями на разных языках.
package derive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SlotsPerZone — количество ячеек в каждой зоне склада.
const SlotsPerZone = 80

// MinQuantity и MinSafeStock — нижние границы производных значений.
const (
	MinQuantity  = 5
	MinSafeStock = 5
)

// DefaultZonePrefix — префикс зоны, если ни одно ключевое слово не совпало.
const DefaultZonePrefix = "GN"

type zonePrefix struct {
	keyword string
	prefix  string
}

// zonePrefixes проверяются по порядку, побеждает первое совпадение.
var zonePrefixes = []zonePrefix{
	{"noodle", "NO"},
	{"rice", "RI"},
	{"condiment", "CD"},
	{"sauce", "CD"},
	{"cooking", "CK"},
	{"confection", "CF"},
	{"snack", "SN"},
	{"crisp", "SN"},
	{"frozen", "FR"},
	{"dried", "DR"},
	{"drink", "BE"},
	{"tea", "BE"},
	{"body", "PC"},
	{"skincare", "PC"},
	{"wholesale", "WH"},
}

// StableHash возвращает первые 48 бит SHA-256 от строки как число.
func StableHash(value string) uint64 {
	sum := sha256.Sum256([]byte(value))
	digest := hex.EncodeToString(sum[:])
	n, _ := strconv.ParseUint(digest[:12], 16, 64)
	return n
}

// Quantity — воспроизводимый остаток в диапазоне [5, 199].
//
// Ключ — variantID, при его отсутствии sku. Недоступные товары делятся на 4,
// дорогие (price >= 50) — ещё на 2 с полом 10.
func Quantity(sku, variantID string, available bool, price float64) int {
	key := variantID
	if key == "" {
		key = sku
	}
	baseline := 35 + int(StableHash(key)%165)

	if !available {
		baseline = max(0, baseline/4)
	}
	if price >= 50 {
		baseline = max(10, baseline/2)
	}
	return max(MinQuantity, baseline)
}

// SafeStock — порог страхового запаса.
// Коэффициент 0.15 для frozen, 0.35 для confection/snack, иначе 0.25.
func SafeStock(quantity int, category string) int {
	lower := strings.ToLower(category)
	factor := 0.25
	if strings.Contains(lower, "frozen") {
		factor = 0.15
	}
	if strings.Contains(lower, "confection") || strings.Contains(lower, "snack") {
		factor = 0.35
	}
	return max(MinSafeStock, int(math.Floor(float64(quantity)*factor)))
}

// ZonePrefix подбирает префикс зоны склада по категории.
func ZonePrefix(category string) string {
	lower := strings.ToLower(category)
	for _, z := range zonePrefixes {
		if strings.Contains(lower, z.keyword) {
			return z.prefix
		}
	}
	return DefaultZonePrefix
}

// Location — код ячейки "{ZONE}-{NN}", NN в 01..80.
func Location(category, sku string) string {
	slot := StableHash(sku)%SlotsPerZone + 1
	return fmt.Sprintf("%s-%02d", ZonePrefix(category), slot)
}
