package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/review"
)

// ErrExamNotFound indicates the exam does not exist
type ErrExamNotFound struct {
	ExamID uuid.UUID
}

func (e *ErrExamNotFound) Error() string {
	return fmt.Sprintf("exam not found: %s", e.ExamID)
}

// ErrSubmissionNotFound indicates the submission does not exist
type ErrSubmissionNotFound struct {
	SubmissionID uuid.UUID
}

func (e *ErrSubmissionNotFound) Error() string {
	return fmt.Sprintf("submission not found: %s", e.SubmissionID)
}

// ErrForbidden indicates the caller does not own the resource
type ErrForbidden struct{}

func (e *ErrForbidden) Error() string {
	return "access denied"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	if errors.Is(err, review.ErrNotFound) {
		return http.StatusNotFound
	}
	switch err.(type) {
	case *ErrExamNotFound, *ErrSubmissionNotFound:
		return http.StatusNotFound
	case *ErrForbidden:
		return http.StatusForbidden
	case *ErrValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to an HTTP status and writes the error response.
// Server-side failures get logged; client errors speak for themselves.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Request failed: %v", err)
	}
	s.errorResponse(w, status, err.Error())
}
