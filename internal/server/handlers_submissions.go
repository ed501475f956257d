package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/db"
	"github.com/jonathan/exam-grader/internal/types"
)

// handleGetSubmission returns a single graded submission
func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.submissionFromPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sub)
}

// handleReviewSubmission applies reviewer overrides to a graded submission
func (s *Server) handleReviewSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.submissionFromPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var patch types.ReviewPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}

	updated, err := s.reviewer.Save(r.Context(), sub.ID, patch)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, updated)
}

// submissionFromPath loads the submission named by the {id} path segment
// and enforces ownership through its exam.
func (s *Server) submissionFromPath(r *http.Request) (*db.Submission, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, &ErrValidation{Field: "id", Message: "must be a valid submission UUID"}
	}

	sub, err := s.db.GetSubmission(r.Context(), id)
	if err != nil {
		return nil, fmt.Errorf("load submission %s: %w", id, err)
	}
	if sub == nil {
		return nil, &ErrSubmissionNotFound{SubmissionID: id}
	}

	exam, err := s.db.GetExam(r.Context(), sub.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load exam for submission %s: %w", id, err)
	}
	if exam == nil || exam.Owner != s.owner(r) {
		return nil, &ErrForbidden{}
	}

	return sub, nil
}
