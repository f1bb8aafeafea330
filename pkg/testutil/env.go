// Package testutil loads environment variables from .env files for
// integration tests that talk to a live Godot editor.
package testutil

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	envOnce   sync.Once
	envLoaded bool
)

// LoadEnv reads a .env file and sets environment variables.
// Searches for .env in current directory and up to 5 parent directories.
// Environment variables already set take precedence over .env values.
// Safe to call multiple times - only loads once.
func LoadEnv() {
	envOnce.Do(func() {
		dir, err := os.Getwd()
		if err != nil {
			return
		}

		for range 6 {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				if parseEnvFile(envPath) == nil {
					envLoaded = true
					return
				}
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	})
}

// EnvLoaded returns true if a .env file was successfully loaded.
func EnvLoaded() bool {
	return envLoaded
}

// parseEnvFile reads a .env file and sets environment variables.
func parseEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		// Only set if not already set (env vars take precedence).
		if key != "" && os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
	return scanner.Err()
}
