// Package openai реализует адаптер LLM провайдера для OpenAI-совместимых API.
//
// DeepSeek, OpenAI и прочие совместимые сервисы подключаются через base_url.
// Работает только через интерфейс llm.Provider.
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/ilkoid/poncho-catalog/pkg/config"
	"github.com/ilkoid/poncho-catalog/pkg/llm"
	"github.com/ilkoid/poncho-catalog/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultTimeout — таймаут запроса, если в модели не указан свой.
const DefaultTimeout = 60 * time.Second

// chatAPI — часть SDK, которую использует клиент. Подменяется в тестах.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client реализует интерфейс llm.Provider для OpenAI-совместимых API.
type Client struct {
	api      chatAPI
	defaults llm.GenerateOptions
	timeout  time.Duration
}

var _ llm.Provider = (*Client)(nil)

// NewClient создает клиент на основе определения модели из config.yaml.
func NewClient(modelDef config.ModelDef) *Client {
	cfg := openai.DefaultConfig(modelDef.APIKey)
	if modelDef.BaseURL != "" {
		cfg.BaseURL = modelDef.BaseURL
	}

	timeout := modelDef.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		api: openai.NewClientWithConfig(cfg),
		defaults: llm.GenerateOptions{
			Model:       modelDef.ModelName,
			Temperature: modelDef.Temperature,
			MaxTokens:   modelDef.MaxTokens,
		},
		timeout: timeout,
	}
}

// Generate выполняет запрос к API и возвращает ответ модели.
//
// Все ошибки возвращаются, никаких panic.
func (c *Client) Generate(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (llm.Message, error) {
	startTime := time.Now()
	o := llm.ApplyOptions(c.defaults, opts...)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := buildRequest(messages, o)

	utils.Debug("LLM request started",
		"model", o.Model,
		"messages_count", len(messages),
		"format", o.Format)

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		utils.Error("LLM API request failed",
			"error", err,
			"model", o.Model,
			"duration_ms", time.Since(startTime).Milliseconds())
		return llm.Message{}, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return llm.Message{}, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0].Message
	utils.Info("LLM response received",
		"model", o.Model,
		"content_length", len(choice.Content),
		"duration_ms", time.Since(startTime).Milliseconds())

	return llm.Message{
		Role:    llm.Role(choice.Role),
		Content: choice.Content,
	}, nil
}

// buildRequest конвертирует внутренние сообщения и опции в запрос SDK.
func buildRequest(messages []llm.Message, o llm.GenerateOptions) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       o.Model,
		Messages:    msgs,
		Temperature: float32(o.Temperature),
		MaxTokens:   o.MaxTokens,
	}
	if o.Format == llm.FormatJSONObject {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return req
}
