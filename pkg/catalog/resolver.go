package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ilkoid/poncho-catalog/pkg/llm"
	"github.com/ilkoid/poncho-catalog/pkg/utils"
)

// CategoryResolver сопоставляет сырые категории поставщика с каноническими.
//
// Ответ — словарь raw → canonical. Отсутствие ключа означает "переопределения нет".
type CategoryResolver interface {
	Resolve(ctx context.Context, raw []string, canonical []string) (map[string]string, error)
}

// Виды ошибок классификации.
const (
	ClassificationRequest = "request" // вызов сервиса не удался
	ClassificationDecode  = "decode"  // ответ не JSON-объект строк
	ClassificationEmpty   = "empty"   // пустой ответ
)

// ClassificationError — внешняя классификация была запрошена, но не удалась.
// Отличает "переопределений нет" от "переопределения не получены".
type ClassificationError struct {
	Kind    string
	Content string // сырой ответ модели, если был
	Err     error
}

func (e *ClassificationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("category classification failed (%s)", e.Kind)
	}
	return fmt.Sprintf("category classification failed (%s): %v", e.Kind, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

const resolverSystemPrompt = "You are a helpful grocery merchandiser."

// LLMCategoryResolver спрашивает языковую модель через llm.Provider.
type LLMCategoryResolver struct {
	Provider llm.Provider
	Opts     []llm.GenerateOption
}

// NewLLMCategoryResolver создает резолвер поверх провайдера.
func NewLLMCategoryResolver(provider llm.Provider, opts ...llm.GenerateOption) *LLMCategoryResolver {
	return &LLMCategoryResolver{Provider: provider, Opts: opts}
}

// Resolve отправляет один запрос со всеми сырыми категориями.
func (r *LLMCategoryResolver) Resolve(ctx context.Context, raw []string, canonical []string) (map[string]string, error) {
	if r.Provider == nil {
		return nil, &ClassificationError{Kind: ClassificationRequest, Err: errors.New("no llm provider configured")}
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: resolverSystemPrompt},
		{Role: llm.RoleUser, Content: buildResolverPrompt(raw, canonical)},
	}
	opts := append([]llm.GenerateOption{llm.WithFormat(llm.FormatJSONObject)}, r.Opts...)

	resp, err := r.Provider.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, &ClassificationError{Kind: ClassificationRequest, Err: err}
	}

	return decodeOverrides(resp.Content)
}

func buildResolverPrompt(raw []string, canonical []string) string {
	unique := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		unique[r] = struct{}{}
	}
	sorted := make([]string, 0, len(unique))
	for r := range unique {
		sorted = append(sorted, r)
	}
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString("You are standardizing grocery categories. ")
	b.WriteString("Map each raw category to the closest canonical category from this list:\n")
	b.WriteString(strings.Join(canonical, ", "))
	b.WriteString(".\nReturn a JSON object where keys are the raw categories and values are canonical names.")
	b.WriteString("\nRaw categories:\n")
	b.WriteString(strings.Join(sorted, "\n"))
	return b.String()
}

// decodeOverrides разбирает ответ модели. Нестроковые значения пропускаются.
func decodeOverrides(content string) (map[string]string, error) {
	cleaned := strings.TrimSpace(utils.CleanJsonBlock(content))
	if cleaned == "" {
		return nil, &ClassificationError{Kind: ClassificationEmpty, Content: content, Err: errors.New("empty response")}
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		// Модель могла обернуть JSON пояснениями
		obj := utils.ExtractJSONObject(cleaned)
		if obj == "" {
			return nil, &ClassificationError{Kind: ClassificationDecode, Content: content, Err: err}
		}
		if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
			return nil, &ClassificationError{Kind: ClassificationDecode, Content: content, Err: err}
		}
	}
	if parsed == nil {
		return nil, &ClassificationError{Kind: ClassificationDecode, Content: content, Err: errors.New("response is not a JSON object")}
	}

	overrides := make(map[string]string, len(parsed))
	for raw, v := range parsed {
		if s, ok := v.(string); ok {
			overrides[raw] = strings.TrimSpace(s)
		}
	}
	return overrides, nil
}
