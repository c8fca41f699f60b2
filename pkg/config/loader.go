package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Option adjusts Load.
type Option func(*loadOptions)

type loadOptions struct {
	skipAPIKey bool
	lookupEnv  func(string) (string, bool)
}

// SkipAPIKeyCheck loads a config for commands that never call the completion service.
func SkipAPIKeyCheck() Option {
	return func(o *loadOptions) { o.skipAPIKey = true }
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(o *loadOptions) { o.lookupEnv = lookup }
}

// Load reads the config file at path (config.yaml when empty).
//
// Order of precedence, lowest first: built-in defaults, the YAML file, the .env file
// next to it (and in the working directory), the process environment.
func Load(path string, opts ...Option) (Config, error) {
	o := loadOptions{lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.Path = path

	env := newEnv(o.lookupEnv, dotenvFiles(path))
	applyEnvOverrides(&cfg, env)

	if err := resolve(&cfg, env); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if !o.skipAPIKey {
		if err := cfg.checkAPIKey(); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults. Unknown keys are errors.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// env merges the process environment with values read from .env files.
type env struct {
	lookup func(string) (string, bool)
	dotenv map[string]string
}

func newEnv(lookup func(string) (string, bool), files []string) env {
	e := env{lookup: lookup, dotenv: map[string]string{}}
	for _, f := range files {
		values, err := godotenv.Read(f)
		if err != nil {
			continue // a missing .env is fine
		}
		for k, v := range values {
			if _, seen := e.dotenv[k]; !seen {
				e.dotenv[k] = v
			}
		}
	}
	return e
}

// get returns the first non-empty value; the process environment wins over .env.
func (e env) get(key string) string {
	if v, ok := e.lookup(key); ok && v != "" {
		return v
	}
	return e.dotenv[key]
}

func dotenvFiles(configPath string) []string {
	files := []string{filepath.Join(filepath.Dir(configPath), DefaultEnvFile)}
	if abs, err := filepath.Abs(filepath.Dir(configPath)); err == nil {
		if wd, err := os.Getwd(); err == nil && wd != abs {
			files = append(files, DefaultEnvFile)
		}
	}
	return files
}

func applyEnvOverrides(cfg *Config, e env) {
	if v := e.get("IDEENFINDER_MODEL"); v != "" {
		cfg.LLM.Model = v
		// An explicit provider belongs to the file's model, re-infer for the new one.
		cfg.LLM.Provider = ""
	}
	if v := e.get("IDEENFINDER_OUTPUT_DIR"); v != "" {
		cfg.Output.Directory = v
	}
	if v := e.get("ARCHON_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.Archon.Enabled = enabled
		}
	}
	if v := e.get("ARCHON_API_URL"); v != "" {
		cfg.Archon.APIURL = v
	}
	if v := e.get("ARCHON_API_KEY"); v != "" {
		cfg.Archon.APIKey = v
	}
}

// resolve fills derived values: provider, API key and ollama host.
func resolve(cfg *Config, e env) error {
	if cfg.LLM.Provider == "" {
		provider, err := GetModelProvider(cfg.LLM.Model)
		if err != nil {
			return err
		}
		cfg.LLM.Provider = provider
	}

	for _, name := range APIKeyEnv[cfg.LLM.Provider] {
		if v := e.get(name); v != "" {
			cfg.LLM.APIKey = v
			break
		}
	}

	if cfg.LLM.Provider == ProviderOllama && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = e.get("OLLAMA_HOST")
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = DefaultOllamaURL
		}
	}
	return nil
}

func (c Config) checkAPIKey() error {
	names, needsKey := APIKeyEnv[c.LLM.Provider]
	if !needsKey || c.LLM.APIKey != "" {
		return nil
	}
	return fmt.Errorf("%w for provider %s: set %s in .env or llm.api_key in config.yaml (run `ideenfinder init`)",
		ErrMissingAPIKey, c.LLM.Provider, names[0])
}
