// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the grader configuration that can be loaded from a JSON
// file. All fields are optional; missing values use defaults or must be
// provided via CLI flags or environment variables.
type Config struct {
	// Paths
	Rubric    string `json:"rubric,omitempty"`     // Path to rubric JSON file
	AnswerKey string `json:"answer_key,omitempty"` // Path to answer key PDF/image

	// Behavior
	APIKey           string  `json:"api_key,omitempty"`            // Gemini API key
	Model            string  `json:"model,omitempty"`              // Model override for the standard tier
	MarksPerQuestion float64 `json:"marks_per_question,omitempty"` // Fallback marks when the rubric omits them
	Temperature      float64 `json:"temperature,omitempty"`        // Sampling temperature for grading calls
	Batch            bool    `json:"batch,omitempty"`              // Treat scans as a multi-student bundle
	Verbose          bool    `json:"verbose,omitempty"`            // Print detailed grade reports

	// Server
	Addr        string `json:"addr,omitempty"`         // HTTP listen address
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.MarksPerQuestion < 0 {
		return fmt.Errorf("config error: 'marks_per_question' must be non-negative")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("config error: 'temperature' must be between 0 and 2")
	}

	// Validate file paths exist (if specified)
	if c.Rubric != "" {
		if _, err := os.Stat(c.Rubric); os.IsNotExist(err) {
			return fmt.Errorf("config error: rubric file not found: %s", c.Rubric)
		}
	}
	if c.AnswerKey != "" {
		if _, err := os.Stat(c.AnswerKey); os.IsNotExist(err) {
			return fmt.Errorf("config error: answer key file not found: %s", c.AnswerKey)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI
// flags and environment variables.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Rubric == "" {
		result.Rubric = defaults.Rubric
	}
	if result.AnswerKey == "" {
		result.AnswerKey = defaults.AnswerKey
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.Addr == "" {
		result.Addr = defaults.Addr
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Numeric fields: use default if zero
	if result.MarksPerQuestion == 0 {
		result.MarksPerQuestion = defaults.MarksPerQuestion
	}
	if result.Temperature == 0 {
		if defaults.Temperature > 0 {
			result.Temperature = defaults.Temperature
		} else {
			result.Temperature = 0.2 // Low temperature keeps grading reproducible
		}
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
