package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GradeStatus tracks where a submission sits in the grading lifecycle.
type GradeStatus string

const (
	GradeStatusPending  GradeStatus = "pending"
	GradeStatusGraded   GradeStatus = "graded"
	GradeStatusReviewed GradeStatus = "reviewed"
)

// Valid reports whether s is one of the known lifecycle states.
func (s GradeStatus) Valid() bool {
	switch s {
	case GradeStatusPending, GradeStatusGraded, GradeStatusReviewed:
		return true
	}
	return false
}

// Exam represents an exam definition owned by a teacher account.
// Rubric is stored as JSONB in the exact loose shape it was uploaded in;
// normalization happens at grading time, never at rest.
type Exam struct {
	ID          uuid.UUID       `json:"id"`
	Owner       string          `json:"owner"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	TotalMarks  float64         `json:"total_marks"`
	Rubric      json.RawMessage `json:"rubric,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Submission represents one student's graded paper for an exam.
// Grade holds the full reconciled per-question record as JSONB.
// Percentage is nullable: a zero-mark exam has no meaningful percentage.
type Submission struct {
	ID          uuid.UUID       `json:"id"`
	ExamID      uuid.UUID       `json:"exam_id"`
	StudentName string          `json:"student_name"`
	RollNumber  string          `json:"roll_number"`
	Grade       json.RawMessage `json:"grade,omitempty"`
	TotalScore  *float64        `json:"total_score,omitempty"`
	Percentage  *float64        `json:"percentage,omitempty"`
	GradeStatus GradeStatus     `json:"grade_status"`
	AIFeedback  string          `json:"ai_feedback,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Stats is the dashboard summary for an owner's account.
// AverageGrade is nil when no submission has a computable percentage.
type Stats struct {
	TotalExams       int      `json:"total_exams"`
	TotalSubmissions int      `json:"total_submissions"`
	AverageGrade     *float64 `json:"average_grade"`
	TotalStudents    int      `json:"total_students"`
}
