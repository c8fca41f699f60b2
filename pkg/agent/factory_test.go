package agent

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideenfinder/internal/mocks"
	"ideenfinder/pkg/agent/llm"
	"ideenfinder/pkg/agent/llmerrors"
	"ideenfinder/pkg/agent/middleware/metrics"
	"ideenfinder/pkg/agent/middleware/resilience/circuit"
	"ideenfinder/pkg/config"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.LLM.APIKey = "test-key"
	cfg.Resilience.Retry.InitialDelay = time.Millisecond
	cfg.Resilience.Retry.MaxDelay = 2 * time.Millisecond
	cfg.Resilience.Retry.Jitter = false
	cfg.Resilience.Timeout = time.Second
	return cfg
}

func TestCreateClientSelectsProvider(t *testing.T) {
	tests := []struct {
		model    string
		provider string
		want     string
	}{
		{model: "claude-sonnet-4-5", want: "claude-sonnet-4-5"},
		{model: "gpt-4o", want: "gpt-4o"},
		{model: "gemini-2.5-pro", want: "gemini-2.5-pro"},
		{model: "ollama/llama3", provider: config.ProviderOllama, want: "llama3"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			cfg := testConfig()
			cfg.LLM.Model = tt.model
			cfg.LLM.Provider = tt.provider

			client, err := NewLLMClientFactory(cfg, nil).CreateClient()
			require.NoError(t, err)
			assert.Equal(t, tt.want, client.GetModelName())
		})
	}
}

func TestCreateClientRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Provider = "bedrock"

	_, err := NewLLMClientFactory(cfg, nil).CreateClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}

func TestWrapRetriesTransientErrors(t *testing.T) {
	mock := mocks.NewMockLLMClient()
	attempts := 0
	mock.CompleteFunc = func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		attempts++
		if attempts < 3 {
			return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeTransient, "502 bad gateway")
		}
		return llm.CompletionResponse{Content: "ok"}, nil
	}

	client := NewLLMClientFactory(testConfig(), nil).Wrap(mock, config.ProviderAnthropic)
	resp, err := client.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, attempts)
}

func TestWrapDoesNotRetryAuthErrors(t *testing.T) {
	mock := mocks.NewMockLLMClient()
	mock.FailCompleteWith(llmerrors.NewError(llmerrors.ErrorTypeAuth, "invalid x-api-key"))

	factory := NewLLMClientFactory(testConfig(), nil)
	client := factory.Wrap(mock, config.ProviderAnthropic)

	_, err := client.Complete(context.Background(), llm.CompletionRequest{})
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeAuth))
	assert.Equal(t, 1, mock.CallCount())
	assert.Equal(t, circuit.Closed, factory.Breaker(config.ProviderAnthropic).GetState())
}

func TestWrapTurnsEmptyOutputIntoServiceUnavailable(t *testing.T) {
	mock := mocks.NewMockLLMClient()
	mock.RespondWith("   ")

	client := NewLLMClientFactory(testConfig(), nil).Wrap(mock, config.ProviderAnthropic)
	_, err := client.Complete(context.Background(), llm.CompletionRequest{})
	require.Error(t, err)
	assert.True(t, llmerrors.IsServiceUnavailable(err))
	assert.Equal(t, 3, mock.CallCount())
}

func TestWrapRecordsMetricsPerAgent(t *testing.T) {
	internal := metrics.NewInternalRecorder()
	recorder := metrics.Multi(internal, metrics.NewPrometheusRecorder(prometheus.NewRegistry()))

	mock := mocks.NewMockLLMClient()
	mock.RespondWith("four words of output")

	client := NewLLMClientFactory(testConfig(), recorder).Wrap(mock, config.ProviderAnthropic)
	ctx := metrics.WithAgent(context.Background(), config.AgentResearch)
	_, err := client.Complete(ctx, llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("hello")}))
	require.NoError(t, err)

	m := internal.Agent(config.AgentResearch)
	require.NotNil(t, m)
	assert.Equal(t, int64(1), m.RequestCount)
	assert.Positive(t, m.TotalTokens)
}

func TestBreakerIsSharedPerProvider(t *testing.T) {
	factory := NewLLMClientFactory(testConfig(), nil)
	assert.Same(t, factory.Breaker(config.ProviderOpenAI), factory.Breaker(config.ProviderOpenAI))
	assert.NotSame(t, factory.Breaker(config.ProviderOpenAI), factory.Breaker(config.ProviderAnthropic))
}
