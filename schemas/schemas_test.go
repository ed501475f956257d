package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

func TestGradeResultSchema_ValidJSON(t *testing.T) {
	var v interface{}
	err := json.Unmarshal([]byte(GradeResult), &v)
	require.NoError(t, err, "embedded schema should be valid JSON")
}

func TestGradeResultSchema_Compiles(t *testing.T) {
	loader := gojsonschema.NewStringLoader(GradeResult)
	_, err := gojsonschema.NewSchema(loader)
	assert.NoError(t, err, "embedded schema should compile as a JSON Schema")
}

func TestGradeResultSchema_AcceptsCanonicalReply(t *testing.T) {
	doc := `{
		"questions": [
			{"qNo": 1, "score": 4, "max": 5,
			 "breakdown": {"method": 3, "final": 1},
			 "confidence": 0.9, "needsReview": false,
			 "rationale": "method correct, minor arithmetic slip"}
		]
	}`

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(GradeResult),
		gojsonschema.NewStringLoader(doc),
	)
	require.NoError(t, err)
	assert.True(t, result.Valid(), "canonical reply should validate: %v", result.Errors())
}

func TestGradeResultSchema_RejectsMissingQuestions(t *testing.T) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(GradeResult),
		gojsonschema.NewStringLoader(`{"student_name": "x"}`),
	)
	require.NoError(t, err)
	assert.False(t, result.Valid())
}
