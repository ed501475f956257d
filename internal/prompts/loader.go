// Package prompts provides a loader for externalized oracle prompt sections.
// Sections are stored as JSON files and embedded at compile time so the
// grading prompt is deterministic for a given build.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// cache stores parsed prompt files to avoid repeated JSON parsing
var (
	cache   = make(map[string]map[string]string)
	cacheMu sync.RWMutex
)

// Get retrieves a prompt section by filename and key.
// The filename should not include a path (e.g., "grading.json").
// Returns an error if the file or key is not found.
func Get(filename, key string) (string, error) {
	sections, err := loadFile(filename)
	if err != nil {
		return "", err
	}

	section, exists := sections[key]
	if !exists {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}

	return section, nil
}

// MustGet retrieves a prompt section, panicking if not found.
// Use this for sections that are required at initialization time.
func MustGet(filename, key string) string {
	section, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return section
}

// loadFile loads and caches a prompt file.
func loadFile(filename string) (map[string]string, error) {
	cacheMu.RLock()
	if sections, exists := cache[filename]; exists {
		cacheMu.RUnlock()
		return sections, nil
	}
	cacheMu.RUnlock()

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}

	var sections map[string]string
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	cacheMu.Lock()
	cache[filename] = sections
	cacheMu.Unlock()

	return sections, nil
}

// ClearCache clears the prompt cache. Useful for testing.
func ClearCache() {
	cacheMu.Lock()
	cache = make(map[string]map[string]string)
	cacheMu.Unlock()
}
