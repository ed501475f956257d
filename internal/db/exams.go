package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ExamCreateInput holds the fields for creating an exam
type ExamCreateInput struct {
	Owner       string
	Title       string
	Description string
	TotalMarks  float64
	Rubric      any
}

// CreateExam creates a new exam record and returns it
func (db *DB) CreateExam(ctx context.Context, input *ExamCreateInput) (*Exam, error) {
	var rubricJSON []byte
	var err error
	if input.Rubric != nil {
		rubricJSON, err = json.Marshal(input.Rubric)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal rubric: %w", err)
		}
	}

	var exam Exam
	err = db.pool.QueryRow(ctx,
		`INSERT INTO exams (owner, title, description, total_marks, rubric)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, owner, title, description, total_marks, rubric, created_at, updated_at`,
		input.Owner, input.Title, input.Description, input.TotalMarks, rubricJSON,
	).Scan(&exam.ID, &exam.Owner, &exam.Title, &exam.Description, &exam.TotalMarks,
		&exam.Rubric, &exam.CreatedAt, &exam.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}
	return &exam, nil
}

// GetExam retrieves an exam by ID. Returns nil, nil when not found.
func (db *DB) GetExam(ctx context.Context, id uuid.UUID) (*Exam, error) {
	var exam Exam
	err := db.pool.QueryRow(ctx,
		`SELECT id, owner, title, description, total_marks, rubric, created_at, updated_at
		 FROM exams WHERE id = $1`,
		id,
	).Scan(&exam.ID, &exam.Owner, &exam.Title, &exam.Description, &exam.TotalMarks,
		&exam.Rubric, &exam.CreatedAt, &exam.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return &exam, nil
}

// ListExams retrieves an owner's exams, newest first
func (db *DB) ListExams(ctx context.Context, owner string, limit int) ([]Exam, error) {
	if limit == 0 {
		limit = 50
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, owner, title, description, total_marks, rubric, created_at, updated_at
		 FROM exams WHERE owner = $1 ORDER BY created_at DESC LIMIT $2`,
		owner, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	defer rows.Close()

	var exams []Exam
	for rows.Next() {
		var exam Exam
		if err := rows.Scan(&exam.ID, &exam.Owner, &exam.Title, &exam.Description,
			&exam.TotalMarks, &exam.Rubric, &exam.CreatedAt, &exam.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exam: %w", err)
		}
		exams = append(exams, exam)
	}
	return exams, nil
}

// UpdateExamRubric replaces an exam's rubric and recorded total marks
func (db *DB) UpdateExamRubric(ctx context.Context, id uuid.UUID, rubric any, totalMarks float64) error {
	rubricJSON, err := json.Marshal(rubric)
	if err != nil {
		return fmt.Errorf("failed to marshal rubric: %w", err)
	}

	result, err := db.pool.Exec(ctx,
		`UPDATE exams SET rubric = $1, total_marks = $2, updated_at = NOW() WHERE id = $3`,
		rubricJSON, totalMarks, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update exam rubric: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("exam not found: %s", id)
	}
	return nil
}

// DeleteExam deletes an exam and all its submissions (via cascade)
func (db *DB) DeleteExam(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("exam not found: %s", id)
	}
	return nil
}
