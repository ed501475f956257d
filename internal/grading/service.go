// Package grading orchestrates the exam grading pipeline: rubric
// normalization, prompt construction, the oracle vision call, reply
// decoding, score reconciliation, and persistence.
package grading

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/exam-grader/internal/db"
	"github.com/jonathan/exam-grader/internal/llm"
	"github.com/jonathan/exam-grader/internal/prompt"
	"github.com/jonathan/exam-grader/internal/reconcile"
	"github.com/jonathan/exam-grader/internal/rubric"
	"github.com/jonathan/exam-grader/internal/types"
)

// ProgressEvent represents a progress update during grading
type ProgressEvent struct {
	Stage       string `json:"stage"`
	Message     string `json:"message"`
	StudentName string `json:"student_name,omitempty"`
	Content     any    `json:"content,omitempty"`
}

// ProgressCallback is called when grading progress occurs
type ProgressCallback func(event ProgressEvent)

// Paper is one student's scanned answer sheets
type Paper struct {
	StudentName string
	RollNo      string
	Context     *string // optional per-student note for the prompt
	Documents   []llm.Document
}

// Request holds everything needed to grade one exam's papers
type Request struct {
	ExamID           uuid.UUID // uuid.Nil skips persistence
	Rubric           *rubric.Rubric
	AnswerKeyContext *string
	AnswerKey        []llm.Document
	Papers           []Paper
	Tier             llm.ModelTier
	OnProgress       ProgressCallback
}

// BatchRequest grades a single scanned bundle containing multiple students'
// papers in one oracle call.
type BatchRequest struct {
	ExamID           uuid.UUID
	Rubric           *rubric.Rubric
	AnswerKeyContext *string
	AnswerKey        []llm.Document
	Pages            []llm.Document
	Tier             llm.ModelTier
	OnProgress       ProgressCallback
}

// StudentReport is the grading outcome for one student
type StudentReport struct {
	StudentName  string                        `json:"student_name"`
	RollNo       string                        `json:"roll_no"`
	Result       types.StudentResult           `json:"result"`
	Questions    []reconcile.ReconciledQuestion `json:"questions"`
	Summary      reconcile.Summary             `json:"summary"`
	SubmissionID uuid.UUID                     `json:"submission_id,omitempty"`
}

// Service runs the grading pipeline
type Service struct {
	oracle llm.Client
	store  *db.DB // nil disables persistence
}

// NewService creates a grading service. A nil store keeps grading available
// without a database (the CLI path).
func NewService(oracle llm.Client, store *db.DB) *Service {
	return &Service{oracle: oracle, store: store}
}

// maxConcurrentPapers bounds simultaneous oracle calls per request
const maxConcurrentPapers = 4

// GradeExam grades each paper in its own oracle call, concurrently.
// Reports come back in paper order regardless of completion order.
func (s *Service) GradeExam(ctx context.Context, req Request) ([]StudentReport, error) {
	if len(req.Papers) == 0 {
		return nil, fmt.Errorf("no papers to grade")
	}

	nr := normalizeRubric(req.Rubric)
	emit(req.OnProgress, ProgressEvent{Stage: "start",
		Message: fmt.Sprintf("Grading %d papers", len(req.Papers))})

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPapers)

	reports := make([]StudentReport, len(req.Papers))
	for i, paper := range req.Papers {
		g.Go(func() error {
			report, err := s.gradePaper(gCtx, nr, req, paper)
			if err != nil {
				return fmt.Errorf("grading %s failed: %w", paper.StudentName, err)
			}
			reports[i] = *report
			emit(req.OnProgress, ProgressEvent{Stage: "graded",
				Message:     fmt.Sprintf("Graded %s: %s", paper.StudentName, summaryLine(report.Summary)),
				StudentName: paper.StudentName, Content: report.Summary})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	emit(req.OnProgress, ProgressEvent{Stage: "done",
		Message: fmt.Sprintf("Graded %d papers", len(reports))})
	return reports, nil
}

// GradeBatch sends one bundle of scanned pages to the oracle and expects a
// legacy array-of-students reply, one record per student found in the scans.
func (s *Service) GradeBatch(ctx context.Context, req BatchRequest) ([]StudentReport, error) {
	if len(req.Pages) == 0 {
		return nil, fmt.Errorf("no pages to grade")
	}

	nr := normalizeRubric(req.Rubric)
	p := prompt.BuildBatch(nr, req.AnswerKeyContext)

	emit(req.OnProgress, ProgressEvent{Stage: "start",
		Message: fmt.Sprintf("Batch grading %d pages", len(req.Pages))})

	docs := make([]llm.Document, 0, len(req.AnswerKey)+len(req.Pages))
	docs = append(docs, req.AnswerKey...)
	docs = append(docs, req.Pages...)

	reply, err := s.oracle.GradeDocuments(ctx, p, docs, req.Tier)
	if err != nil {
		return nil, fmt.Errorf("oracle call failed: %w", err)
	}

	students, err := DecodeStudents(reply)
	if err != nil {
		return nil, err
	}

	reports := make([]StudentReport, 0, len(students))
	for _, student := range students {
		report := buildReport(student)
		if err := s.persist(ctx, req.ExamID, &report); err != nil {
			return nil, err
		}
		emit(req.OnProgress, ProgressEvent{Stage: "graded",
			Message:     fmt.Sprintf("Graded %s: %s", report.StudentName, summaryLine(report.Summary)),
			StudentName: report.StudentName, Content: report.Summary})
		reports = append(reports, report)
	}

	emit(req.OnProgress, ProgressEvent{Stage: "done",
		Message: fmt.Sprintf("Graded %d students", len(reports))})
	return reports, nil
}

func (s *Service) gradePaper(ctx context.Context, nr *rubric.NormalizedRubric, req Request, paper Paper) (*StudentReport, error) {
	p := prompt.Build(nr, req.AnswerKeyContext, paper.Context)

	docs := make([]llm.Document, 0, len(req.AnswerKey)+len(paper.Documents))
	docs = append(docs, req.AnswerKey...)
	docs = append(docs, paper.Documents...)

	reply, err := s.oracle.GradeDocuments(ctx, p, docs, req.Tier)
	if err != nil {
		return nil, fmt.Errorf("oracle call failed: %w", err)
	}

	student, err := decodeStudent(reply)
	if err != nil {
		return nil, err
	}

	// Caller-supplied identity wins over whatever the model read off the scan
	if paper.StudentName != "" {
		student.StudentName = paper.StudentName
	}
	if paper.RollNo != "" {
		student.RollNo = paper.RollNo
	}

	report := buildReport(student)
	if err := s.persist(ctx, req.ExamID, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// decodeStudent tries the canonical contract first, then the legacy shape.
func decodeStudent(reply string) (types.StudentResult, error) {
	if result, err := DecodeCanonical(reply); err == nil {
		return FromCanonical(result), nil
	} else {
		log.Printf("canonical decode failed, trying legacy shape: %v", err)
	}

	students, err := DecodeStudents(reply)
	if err != nil {
		return types.StudentResult{}, err
	}
	return students[0], nil
}

func buildReport(student types.StudentResult) StudentReport {
	reconciled := reconcile.Reconcile(student.Results)
	return StudentReport{
		StudentName: student.StudentName,
		RollNo:      student.RollNo,
		Result:      student,
		Questions:   reconciled,
		Summary:     reconcile.Aggregate(student),
	}
}

func (s *Service) persist(ctx context.Context, examID uuid.UUID, report *StudentReport) error {
	if s.store == nil || examID == uuid.Nil {
		return nil
	}

	record := BuildRecord(report.Result, report.Questions)
	obtained := report.Summary.Obtained

	feedback := ""
	if flagged := record.FlaggedCount(); flagged > 0 {
		feedback = fmt.Sprintf("%d of %d questions flagged for review", flagged, len(record.Questions))
	}

	sub, err := s.store.SaveSubmission(ctx, &db.SubmissionCreateInput{
		ExamID:      examID,
		StudentName: report.StudentName,
		RollNumber:  report.RollNo,
		Grade:       record,
		TotalScore:  &obtained,
		Percentage:  report.Summary.Percentage,
		Status:      db.GradeStatusGraded,
		AIFeedback:  feedback,
	})
	if err != nil {
		return fmt.Errorf("failed to persist submission for %s: %w", report.StudentName, err)
	}
	report.SubmissionID = sub.ID
	return nil
}

func normalizeRubric(r *rubric.Rubric) *rubric.NormalizedRubric {
	if r == nil {
		return nil
	}
	nr := rubric.Normalize(*r)
	return &nr
}

func emit(cb ProgressCallback, event ProgressEvent) {
	if cb != nil {
		cb(event)
	}
}

func summaryLine(s reconcile.Summary) string {
	if s.Percentage != nil {
		return fmt.Sprintf("%.1f/%.1f (%.1f%%)", s.Obtained, s.MaxScore, *s.Percentage)
	}
	return fmt.Sprintf("%.1f/%.1f", s.Obtained, s.MaxScore)
}
