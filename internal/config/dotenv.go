package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// APIKeyEnvVars are the plain variables searched for the Gemini key, in
// order of preference.
var APIKeyEnvVars = []string{"GEMINI_API_KEY", "API_KEY"}

// LoadEnvFile reads path with godotenv and exports every variable that is
// not already set in the process environment. A missing file is not an
// error. The returned map holds everything the file defined.
func LoadEnvFile(path string) (map[string]string, error) {
	values, err := ReadEnvFile(path)
	if err != nil || values == nil {
		return nil, err
	}

	applied := 0
	for key, value := range values {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return nil, fmt.Errorf("failed to export %s from %s: %w", key, path, err)
		}
		applied++
	}
	log.Printf("[CONFIG] Loaded env file %s (%d variables, %d exported)", path, len(values), applied)
	return values, nil
}

// ReadEnvFile parses path without touching the process environment.
// It returns nil, nil when path is empty or does not exist.
func ReadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("[CONFIG] Env file %s not found, skipping", path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse env file %s: %w", path, err)
	}
	return values, nil
}

// APIKeyFromEnvValues picks the Gemini key from a parsed env file.
func APIKeyFromEnvValues(values map[string]string) string {
	for _, name := range APIKeyEnvVars {
		if v := values[name]; v != "" {
			return v
		}
	}
	return ""
}
