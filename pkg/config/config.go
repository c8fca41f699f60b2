// Package config loads the run configuration for ideenfinder.
//
// A Config is read once per run from config.yaml, the .env file next to it and a
// handful of environment overrides. After Load returns it is treated as read-only
// and handed to every component by value; there is no package-level instance.
//
//	cfg, err := config.Load("config.yaml")
//	if errors.Is(err, config.ErrMissingAPIKey) { ... }
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Output format names.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatArchon   = "archon"
)

// Agent names as used under the agents: section.
const (
	AgentResearch    = "research"
	AgentFeatures    = "features"
	AgentTechstack   = "techstack"
	AgentReusability = "reusability"
	AgentValidation  = "validation"
)

// Defaults.
const (
	DefaultConfigFile    = "config.yaml"
	DefaultEnvFile       = ".env"
	DefaultModel         = "claude-sonnet-4-5"
	DefaultMaxTokens     = 4096
	DefaultTemperature   = 0.7
	DefaultOllamaURL     = "http://localhost:11434"
	DefaultArchonURL     = "http://localhost:8181"
	DefaultOutputDir     = "./outputs"
	DefaultHistoryPath   = ".ideenfinder/history.db"
	DefaultCallTimeout   = 120 * time.Second
	DefaultArchonMatch   = 3
	DefaultArchonTimeout = 30 * time.Second
)

// DefaultAgentTokens are the per-agent output ceilings used when config leaves them at 0.
//
//nolint:gochecknoglobals // read-only table
var DefaultAgentTokens = map[string]int{
	AgentResearch:    3000,
	AgentFeatures:    1500,
	AgentTechstack:   1000,
	AgentReusability: 800,
	AgentValidation:  1500,
}

// Sentinel errors.
var (
	// ErrConfigNotFound is returned when the config file does not exist.
	ErrConfigNotFound = errors.New("config file not found (run `ideenfinder init`)")
	// ErrMissingAPIKey is returned when the selected provider needs a key and none is set.
	ErrMissingAPIKey = errors.New("missing API key")
)

// ProviderPattern maps a model-name prefix to a provider.
type ProviderPattern struct {
	Prefix   string
	Provider string
}

// ProviderPatterns infers providers from model names so new models work without code changes.
//
//nolint:gochecknoglobals // Intentional global for inference rules
var ProviderPatterns = []ProviderPattern{
	{"ollama/", ProviderOllama},
	{"claude", ProviderAnthropic},
	{"gpt", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"gemini", ProviderGoogle},
}

// APIKeyEnv lists the environment variables consulted for each provider, first match wins.
//
//nolint:gochecknoglobals // read-only table
var APIKeyEnv = map[string][]string{
	ProviderAnthropic: {"ANTHROPIC_API_KEY"},
	ProviderOpenAI:    {"OPENAI_API_KEY"},
	ProviderGoogle:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// GetModelProvider returns the provider inferred from the model name.
func GetModelProvider(model string) (string, error) {
	for i := range ProviderPatterns {
		if strings.HasPrefix(model, ProviderPatterns[i].Prefix) {
			return ProviderPatterns[i].Provider, nil
		}
	}
	return "", fmt.Errorf("unknown model '%s': cannot determine provider, set llm.provider explicitly", model)
}

// LLMConfig selects the completion service.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
}

// ModelName returns the model as sent to the provider, without an "ollama/" prefix.
func (c LLMConfig) ModelName() string {
	return strings.TrimPrefix(c.Model, "ollama/")
}

// AgentConfig overrides generation parameters for one agent. Zero values inherit.
type AgentConfig struct {
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float32 `yaml:"temperature,omitempty"`
}

// AgentsConfig holds the per-agent overrides.
type AgentsConfig struct {
	Research    AgentConfig `yaml:"research"`
	Features    AgentConfig `yaml:"features"`
	Techstack   AgentConfig `yaml:"techstack"`
	Reusability AgentConfig `yaml:"reusability"`
	Validation  AgentConfig `yaml:"validation"`
}

// RetryConfig defines exponential backoff for retryable completion errors.
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	Jitter        bool          `yaml:"jitter"`
}

// CircuitBreakerConfig defines configuration for circuit breaker behavior.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// ResilienceConfig groups per-call timeout, retry and circuit breaker settings.
type ResilienceConfig struct {
	Timeout        time.Duration        `yaml:"timeout"`
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// PipelineConfig controls failure policy.
type PipelineConfig struct {
	// FailOnPlanningError makes any phase-2 agent failure fatal.
	FailOnPlanningError bool `yaml:"fail_on_planning_error"`
}

// ArchonConfig configures the optional external planning tool.
type ArchonConfig struct {
	Enabled    bool          `yaml:"enabled"`
	APIURL     string        `yaml:"api_url"`
	APIKey     string        `yaml:"api_key"`
	MatchCount int           `yaml:"match_count"`
	Timeout    time.Duration `yaml:"timeout"`
	AutoImport bool          `yaml:"auto_import"`
}

// OutputConfig controls where and what gets written.
type OutputConfig struct {
	Directory string   `yaml:"directory"`
	Formats   []string `yaml:"formats"`
}

// HasFormat reports whether format is enabled.
func (c OutputConfig) HasFormat(format string) bool {
	for _, f := range c.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// HistoryConfig controls the run history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is the complete run configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Agents     AgentsConfig     `yaml:"agents"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Archon     ArchonConfig     `yaml:"archon"`
	Output     OutputConfig     `yaml:"output"`
	History    HistoryConfig    `yaml:"history"`

	// Path is the file the config was loaded from.
	Path string `yaml:"-"`
}

// Agent returns the resolved ceiling and temperature for the named agent.
func (c Config) Agent(name string) (maxTokens int, temperature float32) {
	var ac AgentConfig
	switch name {
	case AgentResearch:
		ac = c.Agents.Research
	case AgentFeatures:
		ac = c.Agents.Features
	case AgentTechstack:
		ac = c.Agents.Techstack
	case AgentReusability:
		ac = c.Agents.Reusability
	case AgentValidation:
		ac = c.Agents.Validation
	}

	maxTokens = ac.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultAgentTokens[name]
	}
	if maxTokens <= 0 {
		maxTokens = c.LLM.MaxTokens
	}
	temperature = c.LLM.Temperature
	if ac.Temperature != nil {
		temperature = *ac.Temperature
	}
	return maxTokens, temperature
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
		Resilience: ResilienceConfig{
			Timeout: DefaultCallTimeout,
			Retry: RetryConfig{
				MaxAttempts:   3,
				InitialDelay:  time.Second,
				MaxDelay:      10 * time.Second,
				BackoffFactor: 2.0,
				Jitter:        true,
			},
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 5,
				SuccessThreshold: 1,
				Timeout:          30 * time.Second,
			},
		},
		Archon: ArchonConfig{
			APIURL:     DefaultArchonURL,
			MatchCount: DefaultArchonMatch,
			Timeout:    DefaultArchonTimeout,
			AutoImport: true,
		},
		Output: OutputConfig{
			Directory: DefaultOutputDir,
			Formats:   []string{FormatJSON, FormatMarkdown, FormatArchon},
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    DefaultHistoryPath,
		},
	}
}

// Validate checks value ranges and reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model: must not be empty"))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens: must be > 0, got %d", c.LLM.MaxTokens))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature: must be in [0,2], got %g", c.LLM.Temperature))
	}

	agents := []struct {
		name string
		cfg  AgentConfig
	}{
		{AgentResearch, c.Agents.Research},
		{AgentFeatures, c.Agents.Features},
		{AgentTechstack, c.Agents.Techstack},
		{AgentReusability, c.Agents.Reusability},
		{AgentValidation, c.Agents.Validation},
	}
	for _, a := range agents {
		if a.cfg.MaxTokens < 0 {
			errs = append(errs, fmt.Errorf("agents.%s.max_tokens: must be >= 0", a.name))
		}
		if a.cfg.Temperature != nil && (*a.cfg.Temperature < 0 || *a.cfg.Temperature > 2) {
			errs = append(errs, fmt.Errorf("agents.%s.temperature: must be in [0,2]", a.name))
		}
	}

	if c.Resilience.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("resilience.retry.max_attempts: must be > 0"))
	}
	if c.Resilience.Timeout < 0 {
		errs = append(errs, errors.New("resilience.timeout: must not be negative"))
	}

	if c.Archon.MatchCount <= 0 {
		errs = append(errs, fmt.Errorf("archon.match_count: must be > 0, got %d", c.Archon.MatchCount))
	}
	if c.Archon.Enabled && c.Archon.APIURL == "" {
		errs = append(errs, errors.New("archon.api_url: required when archon.enabled is true"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output.directory: must not be empty"))
	}
	if len(c.Output.Formats) == 0 {
		errs = append(errs, errors.New("output.formats: at least one format is required"))
	}
	for _, f := range c.Output.Formats {
		switch f {
		case FormatJSON, FormatMarkdown, FormatArchon:
		default:
			errs = append(errs, fmt.Errorf("output.formats: unknown format %q", f))
		}
	}

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, errors.New("history.path: required when history.enabled is true"))
	}

	return errors.Join(errs...)
}
