// Package llm provides options pattern for LLM generation parameters.
package llm

// FormatJSONObject просит модель вернуть строго JSON-объект.
const FormatJSONObject = "json_object"

// GenerateOptions holds parameters for LLM generation.
// Defaults come from the model definition in config.yaml and can be
// overridden per call.
type GenerateOptions struct {
	// Model is the model identifier (e.g., "deepseek-chat")
	Model string

	// Temperature controls randomness in responses (0.0 = deterministic)
	Temperature float64

	// MaxTokens limits the response length, 0 = provider default
	MaxTokens int

	// Format specifies response format ("json_object" or empty)
	Format string
}

// GenerateOption is a functional option for configuring GenerateOptions.
type GenerateOption func(*GenerateOptions)

// WithModel sets the model for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithTemperature sets the temperature for generation.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithMaxTokens sets the maximum tokens for generation.
func WithMaxTokens(tokens int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = tokens
	}
}

// WithFormat sets the response format for generation.
func WithFormat(format string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Format = format
	}
}

// ApplyOptions накладывает opts поверх defaults и возвращает результат.
func ApplyOptions(defaults GenerateOptions, opts ...GenerateOption) GenerateOptions {
	result := defaults
	for _, opt := range opts {
		opt(&result)
	}
	return result
}
