package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SubmissionCreateInput holds the fields for saving a graded submission
type SubmissionCreateInput struct {
	ExamID      uuid.UUID
	StudentName string
	RollNumber  string
	Grade       any
	TotalScore  *float64
	Percentage  *float64
	Status      GradeStatus
	AIFeedback  string
}

// SaveSubmission creates or replaces a student's submission for an exam.
// Re-grading the same roll number overwrites the previous grade record.
func (db *DB) SaveSubmission(ctx context.Context, input *SubmissionCreateInput) (*Submission, error) {
	var gradeJSON []byte
	var err error
	if input.Grade != nil {
		gradeJSON, err = json.Marshal(input.Grade)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal grade: %w", err)
		}
	}

	status := input.Status
	if status == "" {
		status = GradeStatusPending
	}

	var sub Submission
	err = db.pool.QueryRow(ctx,
		`INSERT INTO submissions (exam_id, student_name, roll_number, grade,
		                          total_score, percentage, grade_status, ai_feedback)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (exam_id, roll_number) DO UPDATE SET
		     student_name = $2,
		     grade = $4,
		     total_score = $5,
		     percentage = $6,
		     grade_status = $7,
		     ai_feedback = $8,
		     updated_at = NOW()
		 RETURNING id, exam_id, student_name, roll_number, grade, total_score,
		           percentage, grade_status, ai_feedback, created_at, updated_at`,
		input.ExamID, input.StudentName, input.RollNumber, gradeJSON,
		input.TotalScore, input.Percentage, status, input.AIFeedback,
	).Scan(&sub.ID, &sub.ExamID, &sub.StudentName, &sub.RollNumber, &sub.Grade,
		&sub.TotalScore, &sub.Percentage, &sub.GradeStatus, &sub.AIFeedback,
		&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}
	return &sub, nil
}

// GetSubmission retrieves a submission by ID. Returns nil, nil when not found.
func (db *DB) GetSubmission(ctx context.Context, id uuid.UUID) (*Submission, error) {
	var sub Submission
	err := db.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_name, roll_number, grade, total_score,
		        percentage, grade_status, ai_feedback, created_at, updated_at
		 FROM submissions WHERE id = $1`,
		id,
	).Scan(&sub.ID, &sub.ExamID, &sub.StudentName, &sub.RollNumber, &sub.Grade,
		&sub.TotalScore, &sub.Percentage, &sub.GradeStatus, &sub.AIFeedback,
		&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &sub, nil
}

// ListSubmissions retrieves all submissions for an exam, ordered by roll number
func (db *DB) ListSubmissions(ctx context.Context, examID uuid.UUID) ([]Submission, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, exam_id, student_name, roll_number, grade, total_score,
		        percentage, grade_status, ai_feedback, created_at, updated_at
		 FROM submissions WHERE exam_id = $1 ORDER BY roll_number ASC`,
		examID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(&sub.ID, &sub.ExamID, &sub.StudentName, &sub.RollNumber,
			&sub.Grade, &sub.TotalScore, &sub.Percentage, &sub.GradeStatus,
			&sub.AIFeedback, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// ApplyReview replaces a submission's grade record with the reviewed version
// and marks it reviewed. Saving the same review twice is a no-op beyond the
// updated_at bump.
func (db *DB) ApplyReview(ctx context.Context, id uuid.UUID, grade any, totalScore, percentage *float64) error {
	gradeJSON, err := json.Marshal(grade)
	if err != nil {
		return fmt.Errorf("failed to marshal grade: %w", err)
	}

	result, err := db.pool.Exec(ctx,
		`UPDATE submissions
		 SET grade = $1, total_score = $2, percentage = $3,
		     grade_status = $4, updated_at = NOW()
		 WHERE id = $5`,
		gradeJSON, totalScore, percentage, GradeStatusReviewed, id,
	)
	if err != nil {
		return fmt.Errorf("failed to apply review: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("submission not found: %s", id)
	}
	return nil
}
