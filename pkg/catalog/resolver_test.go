package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/ilkoid/poncho-catalog/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	content  string
	err      error
	messages []llm.Message
	opts     llm.GenerateOptions
}

func (f *fakeProvider) Generate(_ context.Context, messages []llm.Message, opts ...llm.GenerateOption) (llm.Message, error) {
	f.messages = messages
	f.opts = llm.ApplyOptions(llm.GenerateOptions{}, opts...)
	if f.err != nil {
		return llm.Message{}, f.err
	}
	return llm.Message{Role: llm.RoleAssistant, Content: f.content}, nil
}

func TestLLMCategoryResolver_Resolve(t *testing.T) {
	provider := &fakeProvider{content: "```json\n{\"Misc Goods\": \"Dried Pantry\", \"Kimchi\": 3}\n```"}
	resolver := NewLLMCategoryResolver(provider, llm.WithTemperature(0.2))

	got, err := resolver.Resolve(context.Background(),
		[]string{"Misc Goods", "Kimchi", "Misc Goods"},
		[]string{"Dried Pantry", "Pantry & Misc"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"Misc Goods": "Dried Pantry"}, got)
	require.Len(t, provider.messages, 2)
	assert.Equal(t, llm.RoleSystem, provider.messages[0].Role)
	assert.Contains(t, provider.messages[1].Content, "Dried Pantry, Pantry & Misc")
	assert.Contains(t, provider.messages[1].Content, "Kimchi\nMisc Goods")
	assert.Equal(t, llm.FormatJSONObject, provider.opts.Format)
	assert.Equal(t, 0.2, provider.opts.Temperature)
}

func TestLLMCategoryResolver_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		wantKind string
	}{
		{"request failure", &fakeProvider{err: errors.New("timeout")}, ClassificationRequest},
		{"empty content", &fakeProvider{content: "```json\n```"}, ClassificationEmpty},
		{"not json", &fakeProvider{content: "I cannot help with that"}, ClassificationDecode},
		{"json array", &fakeProvider{content: `["a"]`}, ClassificationDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLLMCategoryResolver(tt.provider).Resolve(context.Background(), []string{"x"}, nil)
			var ce *ClassificationError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.wantKind, ce.Kind)
		})
	}
}

func TestDecodeOverrides_ProseAroundObject(t *testing.T) {
	got, err := decodeOverrides(`Sure! {"Misc Goods": "Beverages"} Let me know.`)
	require.NoError(t, err)
	assert.Equal(t, "Beverages", got["Misc Goods"])
}

func TestLLMCategoryResolver_NoProvider(t *testing.T) {
	_, err := (&LLMCategoryResolver{}).Resolve(context.Background(), nil, nil)
	var ce *ClassificationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ClassificationRequest, ce.Kind)
}
