package agent

import (
	"fmt"
	"sync"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	openaiopt "github.com/openai/openai-go/option"

	"ideenfinder/pkg/agent/internal/llmimpl/anthropic"
	"ideenfinder/pkg/agent/internal/llmimpl/google"
	"ideenfinder/pkg/agent/internal/llmimpl/ollama"
	"ideenfinder/pkg/agent/internal/llmimpl/openaiofficial"
	"ideenfinder/pkg/agent/llm"
	"ideenfinder/pkg/agent/middleware/metrics"
	"ideenfinder/pkg/agent/middleware/resilience/circuit"
	"ideenfinder/pkg/agent/middleware/resilience/retry"
	"ideenfinder/pkg/agent/middleware/resilience/timeout"
	"ideenfinder/pkg/agent/middleware/validation"
	"ideenfinder/pkg/config"
	"ideenfinder/pkg/logx"
)

// LLMClientFactory creates LLM clients with properly configured middleware chains.
type LLMClientFactory struct {
	config          config.Config
	metricsRecorder metrics.Recorder
	logger          *logx.Logger

	mu              sync.Mutex
	circuitBreakers map[string]circuit.Breaker // per-provider circuit breakers
}

// NewLLMClientFactory creates a new LLM client factory. A nil recorder disables metrics.
func NewLLMClientFactory(cfg config.Config, recorder metrics.Recorder) *LLMClientFactory {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &LLMClientFactory{
		config:          cfg,
		metricsRecorder: recorder,
		logger:          logx.NewLogger("llm"),
		circuitBreakers: make(map[string]circuit.Breaker),
	}
}

// CreateClient creates the configured provider client with the full middleware chain.
func (f *LLMClientFactory) CreateClient() (llm.LLMClient, error) {
	provider := f.config.LLM.Provider
	if provider == "" {
		p, err := config.GetModelProvider(f.config.LLM.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to determine provider for model %s: %w", f.config.LLM.Model, err)
		}
		provider = p
	}

	rawClient, err := f.rawClient(provider)
	if err != nil {
		return nil, err
	}
	return f.Wrap(rawClient, provider), nil
}

func (f *LLMClientFactory) rawClient(provider string) (llm.LLMClient, error) {
	cfg := f.config.LLM
	switch provider {
	case config.ProviderAnthropic:
		var opts []anthropicopt.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, anthropicopt.WithBaseURL(cfg.BaseURL))
		}
		return anthropic.NewClaudeClientWithModel(cfg.APIKey, cfg.ModelName(), opts...), nil
	case config.ProviderOpenAI:
		var opts []openaiopt.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, openaiopt.WithBaseURL(cfg.BaseURL))
		}
		return openaiofficial.NewOfficialClientWithModel(cfg.APIKey, cfg.ModelName(), opts...), nil
	case config.ProviderGoogle:
		return google.NewGeminiClientWithModel(cfg.APIKey, cfg.ModelName()), nil
	case config.ProviderOllama:
		return ollama.NewOllamaClientWithModel(cfg.BaseURL, cfg.ModelName()), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// Wrap applies the middleware chain to rawClient:
// Metrics -> CircuitBreaker -> Retry -> EmptyResponse -> Timeout -> RawClient.
// Tests use it to put scripted clients behind the production chain.
func (f *LLMClientFactory) Wrap(rawClient llm.LLMClient, provider string) llm.LLMClient {
	res := f.config.Resilience
	retryPolicy := retry.NewPolicy(retry.Config{
		MaxAttempts:   res.Retry.MaxAttempts,
		InitialDelay:  res.Retry.InitialDelay,
		MaxDelay:      res.Retry.MaxDelay,
		BackoffFactor: res.Retry.BackoffFactor,
		Jitter:        res.Retry.Jitter,
	}, nil) // Use default classifier

	return llm.Chain(rawClient,
		metrics.Middleware(f.metricsRecorder, nil, f.logger),
		circuit.Middleware(provider, f.Breaker(provider)),
		retry.Middleware(retryPolicy, f.logger),
		validation.EmptyResponseMiddleware(),
		timeout.Middleware(res.Timeout),
	)
}

// Breaker returns the shared circuit breaker for provider, creating it on first use.
func (f *LLMClientFactory) Breaker(provider string) circuit.Breaker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.circuitBreakers[provider]; ok {
		return b
	}
	cb := f.config.Resilience.CircuitBreaker
	b := circuit.New(circuit.Config{
		FailureThreshold: cb.FailureThreshold,
		SuccessThreshold: cb.SuccessThreshold,
		Timeout:          cb.Timeout,
	})
	f.circuitBreakers[provider] = b
	return b
}
