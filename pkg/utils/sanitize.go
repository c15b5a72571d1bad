// Package utils предоставляет утилиты для построения безопасных ключей хранилища.
package utils

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	unsafeExtChars  = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	repeatedHyphens = regexp.MustCompile(`-{2,}`)
)

// toASCII раскладывает строку в NFKD и выбрасывает всё, что не ASCII:
// "Café" → "Cafe", "辣" → "".
func toASCII(value string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, value)
	if err != nil {
		return ""
	}
	return out
}

// SanitizeComponent превращает произвольную строку в безопасный фрагмент ключа.
//
// Алгоритм:
//  1. NFKD + отбрасывание не-ASCII (диакритика снимается)
//  2. Любая серия символов вне [A-Za-z0-9_-] (с allowDot ещё и '.') → '-'
//  3. "--" схлопываются, '-' по краям обрезаются
func SanitizeComponent(value string, allowDot bool) string {
	if value == "" {
		return ""
	}
	ascii := toASCII(value)
	if allowDot {
		ascii = unsafeExtChars.ReplaceAllString(ascii, "-")
	} else {
		ascii = unsafeNameChars.ReplaceAllString(ascii, "-")
	}
	ascii = repeatedHyphens.ReplaceAllString(ascii, "-")
	return strings.Trim(ascii, "-")
}

// StorageKey строит ключ объекта "<prefix>/<safe-name><safe-ext>".
//
// Пустое имя после санитайза → "product", пустое расширение → ".jpg".
// Пустой filename даёт "" (ключ построить нельзя).
//
// Пример: ("products", "Soy Sauce (辣) 500ml.jpg") → "products/Soy-Sauce-500ml.jpg"
func StorageKey(prefix, filename string) string {
	if filename == "" {
		return ""
	}
	// Ведущие точки не начинают расширение: ".jpg" — имя без расширения
	ext := path.Ext(strings.TrimLeft(filename, "."))
	name := strings.TrimSuffix(filename, ext)
	if ext == "" {
		ext = ".jpg"
	}

	safeName := SanitizeComponent(name, false)
	if safeName == "" {
		safeName = "product"
	}
	safeExt := SanitizeComponent(ext, true)
	if safeExt == "" {
		safeExt = ".jpg"
	}
	combined := safeName + safeExt

	trimmed := strings.Trim(prefix, "/")
	if trimmed == "" {
		return combined
	}
	return strings.Trim(trimmed+"/"+combined, "/")
}
