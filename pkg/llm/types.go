// Базовые типы - универсальный язык общения с моделями
package llm

// Role — роль автора сообщения.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message — одно сообщение чата.
type Message struct {
	Role    Role
	Content string
}
