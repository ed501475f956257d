package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/db"
	"github.com/jonathan/exam-grader/internal/rubric"
	"github.com/jonathan/exam-grader/internal/types"
)

// handleCreateExam creates a new exam
func (s *Server) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req types.CreateExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}

	if err := req.Validate(); err != nil {
		s.writeError(w, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}

	totalMarks := req.TotalMarks
	if totalMarks == 0 && len(req.Rubric) > 0 {
		totalMarks = rubricTotal(req.Rubric)
	}

	exam, err := s.db.CreateExam(r.Context(), &db.ExamCreateInput{
		Owner:       s.owner(r),
		Title:       req.Title,
		Description: req.Description,
		TotalMarks:  totalMarks,
		Rubric:      req.Rubric,
	})
	if err != nil {
		log.Printf("Failed to create exam: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to create exam")
		return
	}

	s.jsonResponse(w, http.StatusCreated, exam)
}

// handleListExams lists the caller's exams, newest first
func (s *Server) handleListExams(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = n
	}

	exams, err := s.db.ListExams(r.Context(), s.owner(r), limit)
	if err != nil {
		log.Printf("Failed to list exams: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list exams")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"exams": exams,
		"count": len(exams),
	})
}

// handleGetExam returns a single exam by ID
func (s *Server) handleGetExam(w http.ResponseWriter, r *http.Request) {
	exam, err := s.examFromPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, exam)
}

// handleUpdateRubric replaces an exam's rubric
func (s *Server) handleUpdateRubric(w http.ResponseWriter, r *http.Request) {
	exam, err := s.examFromPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req types.UpdateRubricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}

	if err := req.Validate(); err != nil {
		s.writeError(w, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}

	totalMarks := req.TotalMarks
	if totalMarks == 0 {
		totalMarks = rubricTotal(req.Rubric)
	}

	if err := s.db.UpdateExamRubric(r.Context(), exam.ID, req.Rubric, totalMarks); err != nil {
		log.Printf("Failed to update rubric: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to update rubric")
		return
	}

	updated, err := s.db.GetExam(r.Context(), exam.ID)
	if err != nil || updated == nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load updated exam")
		return
	}

	s.jsonResponse(w, http.StatusOK, updated)
}

// handleDeleteExam deletes an exam and its submissions
func (s *Server) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	exam, err := s.examFromPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.db.DeleteExam(r.Context(), exam.ID); err != nil {
		log.Printf("Failed to delete exam: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to delete exam")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListSubmissions lists all submissions for an exam
func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	exam, err := s.examFromPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	submissions, err := s.db.ListSubmissions(r.Context(), exam.ID)
	if err != nil {
		log.Printf("Failed to list submissions: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list submissions")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"submissions": submissions,
		"count":       len(submissions),
	})
}

// examFromPath loads the exam named by the {id} path segment and enforces
// ownership.
func (s *Server) examFromPath(r *http.Request) (*db.Exam, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, &ErrValidation{Field: "id", Message: "must be a valid exam UUID"}
	}

	exam, err := s.db.GetExam(r.Context(), id)
	if err != nil {
		return nil, fmt.Errorf("load exam %s: %w", id, err)
	}
	if exam == nil {
		return nil, &ErrExamNotFound{ExamID: id}
	}
	if exam.Owner != s.owner(r) {
		return nil, &ErrForbidden{}
	}

	return exam, nil
}

// rubricTotal derives total marks from a raw rubric. Malformed rubrics
// contribute zero rather than failing the request.
func rubricTotal(raw json.RawMessage) float64 {
	var rb rubric.Rubric
	if err := json.Unmarshal(raw, &rb); err != nil {
		return 0
	}
	return rubric.Normalize(rb).TotalMarks
}
