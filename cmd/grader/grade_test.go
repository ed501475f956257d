package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/exam-grader/internal/grading"
	"github.com/jonathan/exam-grader/internal/reconcile"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRubricFile(t *testing.T) {
	path := writeTempFile(t, "rubric.json", `{
		"questions": [
			{"marks": 5, "notes": "show working"},
			{"marks": 10}
		]
	}`)

	rb, err := loadRubricFile(path, 0)
	require.NoError(t, err)
	require.NotNil(t, rb)
	require.Len(t, rb.Questions, 2)
	assert.Equal(t, 5.0, float64(rb.Questions[0].Marks))
	assert.Equal(t, "show working", rb.Questions[0].Notes)
}

func TestLoadRubricFile_FallbackMarks(t *testing.T) {
	path := writeTempFile(t, "rubric.json", `{
		"questions": [{"marks": 5}, {}, {"notes": "unmarked"}]
	}`)

	rb, err := loadRubricFile(path, 2.5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, float64(rb.Questions[0].Marks))
	assert.Equal(t, 2.5, float64(rb.Questions[1].Marks))
	assert.Equal(t, 2.5, float64(rb.Questions[2].Marks))
}

func TestLoadRubricFile_Empty(t *testing.T) {
	rb, err := loadRubricFile("", 5)
	require.NoError(t, err)
	assert.Nil(t, rb)
}

func TestLoadRubricFile_Malformed(t *testing.T) {
	path := writeTempFile(t, "rubric.json", `{not json`)

	_, err := loadRubricFile(path, 0)
	assert.Error(t, err)
}

func TestLoadRubricFile_NotFound(t *testing.T) {
	_, err := loadRubricFile("/nonexistent/rubric.json", 0)
	assert.Error(t, err)
}

func TestMimeFromExt(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"scan.pdf", "application/pdf"},
		{"scan.PNG", "image/png"},
		{"scan.jpg", "image/jpeg"},
		{"scan.jpeg", "image/jpeg"},
		{"scan.webp", "image/webp"},
		{"scan", "application/pdf"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, mimeFromExt(tt.path), tt.path)
	}
}

func TestReadDocument(t *testing.T) {
	path := writeTempFile(t, "scan.png", "fake image bytes")

	doc, err := readDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", doc.MIMEType)
	assert.Equal(t, []byte("fake image bytes"), doc.Data)
}

func TestRollFromFilename(t *testing.T) {
	assert.Equal(t, "R-042", rollFromFilename("/scans/R-042.pdf"))
	assert.Equal(t, "paper", rollFromFilename("paper"))
}

func TestWriteReports_ToFile(t *testing.T) {
	pct := 50.0
	reports := []grading.StudentReport{
		{StudentName: "Asha", Summary: reconcile.Summary{Obtained: 5, MaxScore: 10, Percentage: &pct}},
	}

	out := filepath.Join(t.TempDir(), "reports.json")
	require.NoError(t, writeReports(reports, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"student_name": "Asha"`)
}
