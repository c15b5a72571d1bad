// Package classifier сопоставляет свободный текст товара с каноническими
// категориями, отделами, температурными зонами и единицами измерения.
//
// Все функции чистые и детерминированные. Порядок правил — часть контракта:
// побеждает первое совпавшее правило, поэтому правила хранятся списком, а не map.
package classifier

import "strings"

// Fallback — категория для товаров, не попавших ни под одно правило.
const Fallback = "Pantry & Misc"

// DefaultDepartment — отдел для категорий без явного маппинга.
const DefaultDepartment = "Pantry"

// CategoryRule — категория и её ключевые подстроки.
type CategoryRule struct {
	Category string
	Keywords []string
}

// DefaultRules — правила в порядке приоритета.
// Пробелы и дефисы в "bun " / "bun-" значимы: так "bun" не цепляет "bundle".
var DefaultRules = []CategoryRule{
	{"Noodles & Rice", []string{"nood", "ramen", "udon", "rice", "pho", "vermicelli", "bun ", "bun-", "bee hoon"}},
	{"Sauces & Condiments", []string{"sauce", "paste", "condiment", "seasoning", "marinade", "dipping", "chilli oil"}},
	{"Cooking Essentials", []string{"flour", "starch", "cooking", "broth", "stock", "bouillon", "oil", "vinegar"}},
	{"Snacks & Confectionery", []string{"snack", "confection", "biscu", "cookie", "crisp", "chip", "candy", "chocolate", "sweet"}},
	{"Dried Pantry", []string{"dried", "dry", "nuts", "seeds", "bean", "lentil", "seaweed"}},
	{"Frozen & Chilled", []string{"frozen", "ready meal", "ready-meal", "dumpling", "gyoza", "ice cream", "ice-cream"}},
	{"Beverages", []string{"drink", "juice", "tea", "coffee", "latte", "soda", "beverage", "milk", "bubble"}},
	{"Fresh Produce", []string{"fresh", "vegetable", "fruit", "herb", "salad"}},
	{"Meat & Seafood", []string{"meat", "pork", "beef", "chicken", "duck", "seafood", "fish", "prawn", "shrimp", "clam"}},
	{"Bakery", []string{"bread", "bun", "cake", "bakery"}},
	{"Household & Personal Care", []string{"bodycare", "skincare", "household", "clean", "detergent", "soap", "shampoo"}},
	{"Wholesale Packs", []string{"wholesale", "case", "bulk"}},
}

var departments = map[string]string{
	"Noodles & Rice":            "Pantry",
	"Sauces & Condiments":       "Pantry",
	"Cooking Essentials":        "Pantry",
	"Snacks & Confectionery":    "Pantry",
	"Dried Pantry":              "Pantry",
	"Frozen & Chilled":          "Frozen",
	"Beverages":                 "Beverages",
	"Fresh Produce":             "Fresh",
	"Meat & Seafood":            "Fresh",
	"Bakery":                    "Fresh",
	"Household & Personal Care": "Household",
	"Wholesale Packs":           "Wholesale",
}

// Engine выполняет классификацию по упорядоченному списку правил.
type Engine struct {
	rules []CategoryRule
}

// New создаёт движок с заданными правилами. Пустой список — только Fallback.
func New(rules []CategoryRule) *Engine {
	return &Engine{rules: rules}
}

// Default возвращает движок со встроенными правилами.
func Default() *Engine {
	return New(DefaultRules)
}

// GuessCategory возвращает первую категорию, чьё ключевое слово встречается
// в blob (без учёта регистра), иначе Fallback.
func (e *Engine) GuessCategory(blob string) string {
	lower := strings.ToLower(blob)
	for _, rule := range e.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Category
			}
		}
	}
	return Fallback
}

// Canonical возвращает список категорий в порядке приоритета плюс Fallback.
func (e *Engine) Canonical() []string {
	out := make([]string, 0, len(e.rules)+1)
	for _, rule := range e.rules {
		out = append(out, rule.Category)
	}
	return append(out, Fallback)
}

// IsCanonical проверяет что name — одна из категорий движка или Fallback.
func (e *Engine) IsCanonical(name string) bool {
	if name == Fallback {
		return true
	}
	for _, rule := range e.rules {
		if rule.Category == name {
			return true
		}
	}
	return false
}

// Department — отдел для категории, DefaultDepartment если маппинга нет.
func Department(category string) string {
	if d, ok := departments[category]; ok {
		return d
	}
	return DefaultDepartment
}
