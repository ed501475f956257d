package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/grading"
	"github.com/jonathan/exam-grader/internal/llm"
	"github.com/jonathan/exam-grader/internal/rubric"
)

// DocumentPayload is a scan attachment; Data is base64-encoded on the wire
type DocumentPayload struct {
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data"`
}

// PaperPayload is one student's scanned answer sheets
type PaperPayload struct {
	StudentName string            `json:"student_name,omitempty"`
	RollNo      string            `json:"roll_no,omitempty"`
	Context     *string           `json:"context,omitempty"`
	Documents   []DocumentPayload `json:"documents"`
}

// GradeRequest represents the request body for /grade
type GradeRequest struct {
	ExamID           string            `json:"exam_id,omitempty"`
	Rubric           *rubric.Rubric    `json:"rubric,omitempty"`
	AnswerKeyContext *string           `json:"answer_key_context,omitempty"`
	AnswerKey        []DocumentPayload `json:"answer_key,omitempty"`
	Papers           []PaperPayload    `json:"papers,omitempty"`
	// Batch mode: one bundle of pages holding multiple students' papers
	Batch bool              `json:"batch,omitempty"`
	Pages []DocumentPayload `json:"pages,omitempty"`
}

// GradeResponse represents the response for /grade
type GradeResponse struct {
	Reports []grading.StudentReport `json:"reports"`
}

// gradeJob is a validated, resolved grading request ready to run
type gradeJob struct {
	examID uuid.UUID
	req    GradeRequest
}

// prepareGrade decodes and validates a grading request, resolving the exam
// and its stored rubric when exam_id is given.
func (s *Server) prepareGrade(r *http.Request) (*gradeJob, error) {
	var req GradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, &ErrValidation{Field: "body", Message: err.Error()}
	}

	if req.Batch {
		if len(req.Pages) == 0 {
			return nil, &ErrValidation{Field: "pages", Message: "required for batch grading"}
		}
	} else {
		if len(req.Papers) == 0 {
			return nil, &ErrValidation{Field: "papers", Message: "at least one paper is required"}
		}
		for _, p := range req.Papers {
			if len(p.Documents) == 0 {
				return nil, &ErrValidation{Field: "papers", Message: "every paper needs at least one document"}
			}
		}
	}

	job := &gradeJob{req: req}

	if req.ExamID != "" {
		examID, err := uuid.Parse(req.ExamID)
		if err != nil {
			return nil, &ErrValidation{Field: "exam_id", Message: "must be a valid exam UUID"}
		}

		exam, err := s.db.GetExam(r.Context(), examID)
		if err != nil {
			return nil, fmt.Errorf("load exam %s: %w", examID, err)
		}
		if exam == nil {
			return nil, &ErrExamNotFound{ExamID: examID}
		}
		if exam.Owner != s.owner(r) {
			return nil, &ErrForbidden{}
		}

		job.examID = examID

		// The stored rubric applies unless the request carries its own
		if job.req.Rubric == nil && len(exam.Rubric) > 0 {
			var stored rubric.Rubric
			if err := json.Unmarshal(exam.Rubric, &stored); err == nil {
				job.req.Rubric = &stored
			}
		}
	}

	return job, nil
}

// handleGrade grades papers synchronously and returns the reports
func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	job, err := s.prepareGrade(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	reports, err := s.runGrade(r, job, nil)
	if err != nil {
		log.Printf("Grading failed: %v", err)
		s.errorResponse(w, http.StatusBadGateway, "Grading failed: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, GradeResponse{Reports: reports})
}

// handleGradeStream grades papers and streams progress via SSE
func (s *Server) handleGradeStream(w http.ResponseWriter, r *http.Request) {
	job, err := s.prepareGrade(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	onProgress := func(event grading.ProgressEvent) {
		if err := sse.WriteEvent("progress", event); err != nil {
			log.Printf("Error writing SSE event: %v", err)
		}
	}

	reports, err := s.runGrade(r, job, onProgress)
	if err != nil {
		log.Printf("Grading failed: %v", err)
		sse.WriteError(err.Error())
		return
	}

	sse.WriteComplete(GradeResponse{Reports: reports})
}

func (s *Server) runGrade(r *http.Request, job *gradeJob, onProgress grading.ProgressCallback) ([]grading.StudentReport, error) {
	ctx := r.Context()

	if job.req.Batch {
		return s.grader.GradeBatch(ctx, grading.BatchRequest{
			ExamID:           job.examID,
			Rubric:           job.req.Rubric,
			AnswerKeyContext: job.req.AnswerKeyContext,
			AnswerKey:        toDocuments(job.req.AnswerKey),
			Pages:            toDocuments(job.req.Pages),
			Tier:             llm.TierStandard,
			OnProgress:       onProgress,
		})
	}

	papers := make([]grading.Paper, 0, len(job.req.Papers))
	for _, p := range job.req.Papers {
		papers = append(papers, grading.Paper{
			StudentName: p.StudentName,
			RollNo:      p.RollNo,
			Context:     p.Context,
			Documents:   toDocuments(p.Documents),
		})
	}

	return s.grader.GradeExam(ctx, grading.Request{
		ExamID:           job.examID,
		Rubric:           job.req.Rubric,
		AnswerKeyContext: job.req.AnswerKeyContext,
		AnswerKey:        toDocuments(job.req.AnswerKey),
		Papers:           papers,
		Tier:             llm.TierStandard,
		OnProgress:       onProgress,
	})
}

func toDocuments(payloads []DocumentPayload) []llm.Document {
	docs := make([]llm.Document, 0, len(payloads))
	for _, p := range payloads {
		mime := p.MIMEType
		if mime == "" {
			mime = "application/pdf"
		}
		docs = append(docs, llm.Document{MIMEType: mime, Data: p.Data})
	}
	return docs
}
