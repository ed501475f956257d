package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/exam-grader/internal/types"
)

func TestDecodeCanonical_Valid(t *testing.T) {
	raw := `{
		"student_name": "Asha Patel",
		"questions": [
			{"qNo": 1, "score": 4, "max": 5,
			 "breakdown": {"method": 3, "final": 1},
			 "confidence": 0.85, "needsReview": false,
			 "rationale": "method sound"},
			{"qNo": 2, "score": 0, "max": 5, "needsReview": true, "rationale": "blank"}
		]
	}`

	result, err := DecodeCanonical(raw)
	require.NoError(t, err)
	require.Len(t, result.Questions, 2)
	assert.Equal(t, "Asha Patel", result.StudentName)
	assert.Equal(t, 1, result.Questions[0].QNo)
	assert.Equal(t, 4.0, result.Questions[0].Score)
	assert.Equal(t, 5.0, result.Questions[0].Max)
	assert.True(t, result.Questions[1].NeedsReview)
}

// Identity fields use the same snake_case spelling everywhere on the wire;
// a reply that passes schema validation must also decode its identity.
func TestDecodeCanonical_IdentityFields(t *testing.T) {
	raw := `{
		"student_name": "Ravi Kumar",
		"roll_no": "R-42",
		"questions": [{"qNo": 1, "score": 3, "max": 5}]
	}`

	result, err := DecodeCanonical(raw)
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", result.StudentName)
	assert.Equal(t, "R-42", result.RollNo)
}

func TestDecodeCanonical_MissingQuestions(t *testing.T) {
	_, err := DecodeCanonical(`{"student_name": "x"}`)
	assert.Error(t, err)
}

func TestDecodeCanonical_WrongTypes(t *testing.T) {
	// Canonical contract is strict: string-typed scores are rejected here
	// and handled by the legacy path instead.
	_, err := DecodeCanonical(`{"questions": [{"qNo": 1, "score": "4", "max": 5}]}`)
	assert.Error(t, err)
}

func TestFromCanonical(t *testing.T) {
	result := &types.OracleResult{
		StudentName: "Ravi",
		RollNo:      "R-07",
		Questions: []types.OracleQuestion{
			{QNo: 3, Score: 2.5, Max: 4, Confidence: 0.6, NeedsReview: true, Rationale: "partial method"},
		},
	}

	student := FromCanonical(result)
	assert.Equal(t, "Ravi", student.StudentName)
	assert.Equal(t, "R-07", student.RollNo)
	require.Len(t, student.Results, 1)

	q := student.Results[0]
	assert.Equal(t, types.FlexString("3"), q.QNum)
	require.NotNil(t, q.MarksObtained)
	assert.Equal(t, 2.5, float64(*q.MarksObtained))
	require.NotNil(t, q.MaxMarks)
	assert.Equal(t, 4.0, float64(*q.MaxMarks))
	assert.Equal(t, "partial method", q.Feedback)
	assert.True(t, q.ModelFlagged)
	require.NotNil(t, q.Confidence)
	assert.Equal(t, 0.6, *q.Confidence)
}

func TestDecodeStudents_Array(t *testing.T) {
	raw := `[
		{"student_name": "A", "roll_no": "1", "results": [
			{"q_num": 1, "marks_obtained": 3, "max_marks": 5}
		], "total_score": 3},
		{"student_name": "B", "roll_no": "2", "results": []}
	]`

	students, err := DecodeStudents(raw)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "A", students[0].StudentName)
	require.NotNil(t, students[0].TotalScore)
	assert.Equal(t, 3.0, float64(*students[0].TotalScore))
}

func TestDecodeStudents_SingleObjectWrapped(t *testing.T) {
	raw := `{"student_name": "Solo", "results": [{"q_num": "1", "score_text": "2 / 4"}]}`

	students, err := DecodeStudents(raw)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Solo", students[0].StudentName)
}

func TestDecodeStudents_RollNoOnlyWrapped(t *testing.T) {
	students, err := DecodeStudents(`{"roll_no": "R-9"}`)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "R-9", students[0].RollNo)
}

func TestDecodeStudents_ArbitraryObjectRejected(t *testing.T) {
	_, err := DecodeStudents(`{"message": "cannot grade"}`)
	assert.Error(t, err)
}

func TestDecodeStudents_EmptyArray(t *testing.T) {
	_, err := DecodeStudents(`[]`)
	assert.ErrorIs(t, err, ErrNoStudents)
}

func TestDecodeStudents_MalformedJSON(t *testing.T) {
	_, err := DecodeStudents(`{broken`)
	assert.Error(t, err)
}

func TestDecodeStudents_LenientNumbers(t *testing.T) {
	raw := `[{"student_name": "C", "roll_no": "3", "results": [
		{"q_num": 2, "marks_obtained": "3.5", "max_marks": "not a number"}
	]}]`

	students, err := DecodeStudents(raw)
	require.NoError(t, err)

	q := students[0].Results[0]
	require.NotNil(t, q.MarksObtained)
	assert.Equal(t, 3.5, float64(*q.MarksObtained))
	require.NotNil(t, q.MaxMarks)
	assert.Equal(t, 0.0, float64(*q.MaxMarks), "garbage coerces to zero")
}
