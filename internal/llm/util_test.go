package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json fence",
			input:    "```json\n{\"questions\": []}\n```",
			expected: `{"questions": []}`,
		},
		{
			name:     "generic fence",
			input:    "```\n{\"questions\": []}\n```",
			expected: `{"questions": []}`,
		},
		{
			name:     "no fence",
			input:    `{"questions": []}`,
			expected: `{"questions": []}`,
		},
		{
			name:     "surrounding whitespace",
			input:    "  \n```json\n[1, 2]\n```\n ",
			expected: "[1, 2]",
		},
		{
			name:     "fence with language identifier on own line",
			input:    "```javascript\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}
