package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompletionRequest(t *testing.T) {
	req := NewCompletionRequest([]CompletionMessage{NewUserMessage("test")})

	require.Len(t, req.Messages, 1)
	assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
	assert.InDelta(t, TemperatureDefault, req.Temperature, 0.0001)
	assert.Equal(t, RoleUser, req.Messages[0].Role)
}

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]CompletionMessage{
		NewSystemMessage("you are a researcher"),
		NewUserMessage("analyze this"),
		NewSystemMessage("answer in markdown"),
	})

	assert.Equal(t, "you are a researcher\n\nanswer in markdown", system)
	require.Len(t, rest, 1)
	assert.Equal(t, "analyze this", rest[0].Content)
}

func TestLLMConfigValidate(t *testing.T) {
	valid := LLMConfig{APIKey: "k", ModelName: "claude-sonnet-4-5", MaxTokens: 100, Temperature: 0.7}

	tests := []struct {
		name       string
		mutate     func(c *LLMConfig)
		requireKey bool
		wantErr    string
	}{
		{"valid", func(*LLMConfig) {}, true, ""},
		{"missing key", func(c *LLMConfig) { c.APIKey = "" }, true, "API key"},
		{"missing key allowed", func(c *LLMConfig) { c.APIKey = "" }, false, ""},
		{"missing model", func(c *LLMConfig) { c.ModelName = "" }, true, "model name"},
		{"zero tokens", func(c *LLMConfig) { c.MaxTokens = 0 }, true, "max tokens"},
		{"temperature too high", func(c *LLMConfig) { c.Temperature = 2.5 }, true, "temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate(tt.requireKey)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
