// Package utils предоставляет вспомогательные функции для обработки данных.
//
// Включает очистку ответов LLM перед json.Unmarshal.
package utils

import (
	"strings"
)

// CleanJsonBlock удаляет markdown-обёртку вокруг JSON.
//
// Примеры:
//   ```json {"a": 1} ``` → {"a": 1}
//   ``` {"a": 1} ``` → {"a": 1}
func CleanJsonBlock(s string) string {
	s = strings.TrimSpace(s)
	for _, fence := range []string{"```json", "```JSON", "```Json", "```"} {
		if strings.HasPrefix(s, fence) {
			s = strings.TrimPrefix(s, fence)
			break
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject достаёт первый JSON-объект из ответа модели.
//
// Модели классификации иногда добавляют пояснение до или после маппинга:
//   "Here is the mapping: {"Kimchi": "Fresh Produce"} Hope it helps"
//
// Строки в кавычках учитываются, поэтому "{" внутри ключа не ломает баланс.
// Возвращает "" если объекта нет. Не валидирует JSON.
func ExtractJSONObject(s string) string {
	s = CleanJsonBlock(s)
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
