// Интерфейс провайдера языковой модели: через него идет классификация категорий.

package llm

import "context"

// Provider — контракт для любого AI-сервиса (OpenAI, DeepSeek и т.д.).
type Provider interface {
	// Generate отправляет историю сообщений и возвращает ответ модели.
	Generate(ctx context.Context, messages []Message, opts ...GenerateOption) (Message, error)
}
