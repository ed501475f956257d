package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jonathan/exam-grader/internal/schemas"
	"github.com/jonathan/exam-grader/internal/types"
	rootschemas "github.com/jonathan/exam-grader/schemas"
)

// ErrNoStudents is returned when a reply decodes cleanly but carries no
// student records.
var ErrNoStudents = errors.New("no students found in grading response")

// DecodeCanonical parses an oracle reply in the canonical wire shape,
// enforcing schemas/grade_result.schema.json before unmarshalling.
func DecodeCanonical(raw string) (*types.OracleResult, error) {
	if err := schemas.ValidateJSONString(rootschemas.GradeResult, raw); err != nil {
		return nil, fmt.Errorf("canonical grade reply rejected: %w", err)
	}

	var result types.OracleResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to parse grade reply: %w", err)
	}
	return &result, nil
}

// FromCanonical converts a canonical oracle result into the internal
// per-question grade record the reconciler operates on.
func FromCanonical(result *types.OracleResult) types.StudentResult {
	sr := types.StudentResult{
		StudentName: result.StudentName,
		RollNo:      result.RollNo,
		Results:     make([]types.QuestionGrade, 0, len(result.Questions)),
	}

	for _, q := range result.Questions {
		score := types.FlexFloat(q.Score)
		max := types.FlexFloat(q.Max)
		confidence := q.Confidence
		breakdown := q.Breakdown
		sr.Results = append(sr.Results, types.QuestionGrade{
			QNum:          types.FlexString(strconv.Itoa(q.QNo)),
			MarksObtained: &score,
			MaxMarks:      &max,
			Feedback:      q.Rationale,
			Confidence:    &confidence,
			Breakdown:     &breakdown,
			ModelFlagged:  q.NeedsReview,
		})
	}
	return sr
}

// DecodeStudents parses a legacy-shape reply: either a JSON array of student
// records or a single student object, which gets wrapped. Kept as an explicit
// back-compat path for batch grading and for oracles that ignore the
// canonical contract.
func DecodeStudents(raw string) ([]types.StudentResult, error) {
	var students []types.StudentResult
	if err := json.Unmarshal([]byte(raw), &students); err == nil {
		if len(students) == 0 {
			return nil, ErrNoStudents
		}
		return students, nil
	}

	// Single student returned as an object. Only wrap when it actually
	// looks like a student record, not an arbitrary JSON object.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse grading response: %w", err)
	}
	if _, hasName := fields["student_name"]; !hasName {
		if _, hasRoll := fields["roll_no"]; !hasRoll {
			return nil, fmt.Errorf("expected list of students in grading response")
		}
	}

	var single types.StudentResult
	if err := json.Unmarshal([]byte(raw), &single); err != nil {
		return nil, fmt.Errorf("failed to parse student record: %w", err)
	}
	return []types.StudentResult{single}, nil
}
