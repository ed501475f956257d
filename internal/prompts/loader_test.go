package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsSection(t *testing.T) {
	section, err := Get("grading.json", "grading-header")
	require.NoError(t, err)
	assert.NotEmpty(t, section)
}

func TestGetUnknownFile(t *testing.T) {
	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
}

func TestGetUnknownKey(t *testing.T) {
	_, err := Get("grading.json", "nonexistent-key")
	assert.Error(t, err)
}

func TestMustGetPanicsOnMissing(t *testing.T) {
	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestMustGetReturnsSection(t *testing.T) {
	assert.NotPanics(t, func() {
		section := MustGet("grading.json", "output-contract")
		assert.NotEmpty(t, section)
	})
}

func TestCacheReturnsSameContent(t *testing.T) {
	ClearCache()

	first, err := Get("grading.json", "batch-contract")
	require.NoError(t, err)
	second, err := Get("grading.json", "batch-contract")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
