package classifier

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	unitPattern    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(kg|g|ml|l|ltrs|litre|liter|lb|oz)`)
	casePattern    = regexp.MustCompile(`(?i)(case|pack|box)\s*(of)?\s*(\d+)`)
	servingPattern = regexp.MustCompile(`(?i)(\d+)\s*x\s*(\d+)`)
)

var unitAliases = strings.NewReplacer("litre", "l", "liter", "l", "ltrs", "l")

// ExtractUnitInfo ищет первое "число+единица" в тексте.
// Возвращает размер ("500ml") и нормализованную единицу ("ml").
func ExtractUnitInfo(text string) (size string, unit string, ok bool) {
	m := unitPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	unit = unitAliases.Replace(strings.ToLower(m[2]))
	return m[1] + unit, unit, true
}

// ExtractCaseSize извлекает размер упаковки: "case of 12", "pack 6" или "4 x 6" (= 24).
// Некорректные числа дают nil, паники нет.
func ExtractCaseSize(text string) *int {
	if m := casePattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[3])
		if err != nil {
			return nil
		}
		return &n
	}
	if m := servingPattern.FindStringSubmatch(text); m != nil {
		a, errA := strconv.Atoi(m[1])
		b, errB := strconv.Atoi(m[2])
		if errA != nil || errB != nil {
			return nil
		}
		if a != 0 && b > int(^uint(0)>>1)/a {
			return nil
		}
		n := a * b
		return &n
	}
	return nil
}

type unitKeyword struct {
	keyword string
	unit    string
}

// packagingUnits — таблица упаковок для импорта, проверяется по порядку.
var packagingUnits = []unitKeyword{
	{"case", "case"},
	{"pack", "pack"},
	{"bottle", "bottle"},
	{"bottles", "bottle"},
	{"can", "can"},
	{"tin", "can"},
	{"jar", "jar"},
	{"sachet", "sachet"},
	{"cup", "cup"},
}

// DetermineUnit подбирает единицу хранения по названию товара.
// Весовые токены дают "pack", объёмные — "bottle", иначе "unit".
func DetermineUnit(name string) string {
	lower := strings.ToLower(name)
	for _, u := range packagingUnits {
		if strings.Contains(lower, u.keyword) {
			return u.unit
		}
	}
	if containsAny(lower, "kg", "g", "gram") {
		return "pack"
	}
	if containsAny(lower, "ml", "l", "litre") {
		return "bottle"
	}
	return "unit"
}

func containsAny(s string, tokens ...string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
