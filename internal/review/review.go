// Package review applies human grade corrections to stored submissions.
// Review is a command, not a query: Save rewrites the grade record and the
// aggregate in one step, and saving the same patch twice lands on the same
// state.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/db"
	"github.com/jonathan/exam-grader/internal/grading"
	"github.com/jonathan/exam-grader/internal/reconcile"
	"github.com/jonathan/exam-grader/internal/rubric"
	"github.com/jonathan/exam-grader/internal/types"
)

// ErrNotFound is returned when the submission does not exist.
var ErrNotFound = errors.New("submission not found")

// Totals is the recomputed submission-level outcome after edits.
type Totals struct {
	TotalScore float64  `json:"total_score"`
	Percentage *float64 `json:"percentage"`
}

// Session applies reviewer edits against the store.
type Session struct {
	store *db.DB
}

// NewSession creates a review session backed by the given store.
func NewSession(store *db.DB) *Session {
	return &Session{store: store}
}

// Save applies a reviewer's patch to a submission: per-question score
// overrides are rounded per the exam rubric's marking policy, the aggregate
// is recomputed, and the submission is marked reviewed.
func (s *Session) Save(ctx context.Context, submissionID uuid.UUID, patch types.ReviewPatch) (*db.Submission, error) {
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid review patch: %w", err)
	}

	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNotFound
	}

	var record grading.Record
	if len(sub.Grade) > 0 {
		if err := json.Unmarshal(sub.Grade, &record); err != nil {
			return nil, fmt.Errorf("failed to decode stored grade: %w", err)
		}
	}

	exam, err := s.store.GetExam(ctx, sub.ExamID)
	if err != nil {
		return nil, err
	}

	updated, totals, err := ApplyPatch(record, policiesFor(exam), patch)
	if err != nil {
		return nil, err
	}

	if err := s.store.ApplyReview(ctx, submissionID, updated, &totals.TotalScore, totals.Percentage); err != nil {
		return nil, err
	}

	return s.store.GetSubmission(ctx, submissionID)
}

// ApplyPatch applies reviewer overrides to a grade record and recomputes the
// aggregate. Earned-score overrides are rounded with the question's marking
// policy when one is known. The input record is not modified.
func ApplyPatch(record grading.Record, policies map[int]rubric.NormalizedPolicy, patch types.ReviewPatch) (grading.Record, Totals, error) {
	questions := make([]grading.QuestionRecord, len(record.Questions))
	copy(questions, record.Questions)

	index := make(map[int]int, len(questions))
	for i, q := range questions {
		index[q.QNo] = i
	}

	for _, o := range patch.Overrides {
		i, ok := index[o.QNo]
		if !ok {
			return grading.Record{}, Totals{}, fmt.Errorf("question %d not found in grade record", o.QNo)
		}
		q := questions[i]

		if o.Max != nil {
			max := *o.Max
			q.Max = &max
		}
		if o.Earned != nil {
			earned := *o.Earned
			if policy, ok := policies[o.QNo]; ok {
				earned = policy.Round(earned)
			}
			q.Earned = &earned
		}
		if o.Feedback != nil {
			q.Feedback = *o.Feedback
		}

		q.Percentage = reconcile.SafePercent(q.Earned, q.Max)
		if o.ClearFlag {
			q.NeedsReview = false
		} else if o.Earned != nil || o.Max != nil {
			q.NeedsReview = reconcile.NeedsReview(q.Earned, q.Max)
		}

		questions[i] = q
	}

	updated := grading.Record{Questions: questions}

	total := 0.0
	maxTotal := 0.0
	for _, q := range questions {
		if q.Earned != nil {
			total += *q.Earned
		}
		if q.Max != nil {
			maxTotal += *q.Max
		}
	}

	return updated, Totals{
		TotalScore: total,
		Percentage: reconcile.SafePercent(&total, &maxTotal),
	}, nil
}

// policiesFor extracts per-question marking policies from an exam's stored
// rubric. Missing or unparseable rubrics yield no policies; review still
// works, just without rounding.
func policiesFor(exam *db.Exam) map[int]rubric.NormalizedPolicy {
	if exam == nil || len(exam.Rubric) == 0 {
		return nil
	}

	var r rubric.Rubric
	if err := json.Unmarshal(exam.Rubric, &r); err != nil {
		return nil
	}

	nr := rubric.Normalize(r)
	policies := make(map[int]rubric.NormalizedPolicy, len(nr.Questions))
	for _, q := range nr.Questions {
		policies[q.QNo] = q.Policy
	}
	return policies
}
