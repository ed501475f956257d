package types

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// CreateExamRequest represents the request to create a new exam.
// The rubric is accepted as-is; it is normalized at grading time.
type CreateExamRequest struct {
	Title       string          `json:"title" validate:"required,min=1"`
	Description string          `json:"description,omitempty"`
	TotalMarks  float64         `json:"total_marks,omitempty" validate:"omitempty,min=0"`
	Rubric      json.RawMessage `json:"rubric,omitempty"`
}

// UpdateRubricRequest replaces an exam's rubric.
type UpdateRubricRequest struct {
	Rubric     json.RawMessage `json:"rubric" validate:"required"`
	TotalMarks float64         `json:"total_marks,omitempty" validate:"omitempty,min=0"`
}

// QuestionOverride is one reviewer edit to a graded question.
type QuestionOverride struct {
	QNo      int      `json:"q_no" validate:"required,min=1"`
	Earned   *float64 `json:"earned,omitempty" validate:"omitempty,min=0"`
	Max      *float64 `json:"max,omitempty" validate:"omitempty,min=0"`
	Feedback *string  `json:"feedback,omitempty"`
	// ClearFlag removes the needs-review flag after a human has looked.
	ClearFlag bool `json:"clear_flag,omitempty"`
}

// ReviewPatch represents a reviewer's edits to a submission.
type ReviewPatch struct {
	Overrides []QuestionOverride `json:"overrides" validate:"required,min=1,dive"`
}

// Validate validates the CreateExamRequest using the validator.
func (r *CreateExamRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the UpdateRubricRequest using the validator.
func (r *UpdateRubricRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ReviewPatch using the validator.
func (r *ReviewPatch) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
