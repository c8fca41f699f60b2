package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed defaults/config.yaml defaults/env.example
var defaultFiles embed.FS

// InitResult reports what Init did with one file.
type InitResult struct {
	Path    string
	Created bool // false: the file existed and was left unchanged
}

// Init materializes config.yaml and .env in dir from the embedded defaults.
// Existing files are never touched, so running it twice is harmless.
func Init(dir string) ([]InitResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	files := []struct {
		source string
		target string
		perm   os.FileMode
	}{
		{"defaults/config.yaml", DefaultConfigFile, 0o644},
		{"defaults/env.example", DefaultEnvFile, 0o600},
	}

	results := make([]InitResult, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.target)
		created, err := ensureFile(path, f.source, f.perm)
		if err != nil {
			return results, err
		}
		results = append(results, InitResult{Path: path, Created: created})
	}
	return results, nil
}

// DefaultYAML returns the embedded default config.yaml.
func DefaultYAML() []byte {
	data, _ := defaultFiles.ReadFile("defaults/config.yaml")
	return data
}

func ensureFile(path, source string, perm os.FileMode) (bool, error) {
	data, err := defaultFiles.ReadFile(source)
	if err != nil {
		return false, fmt.Errorf("missing embedded default %s: %w", source, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("failed to close %s: %w", path, err)
	}
	return true, nil
}
