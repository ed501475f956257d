package grading

import (
	"strconv"

	"github.com/jonathan/exam-grader/internal/reconcile"
	"github.com/jonathan/exam-grader/internal/types"
)

// Record is the grade document persisted to the submissions table. It keeps
// both the oracle's raw per-question output and the reconciled verdicts, so
// a reviewer can see what the model said and what the system made of it.
type Record struct {
	Questions []QuestionRecord `json:"questions"`
}

// QuestionRecord is one reconciled question inside a Record.
type QuestionRecord struct {
	QNo         int              `json:"qNo"`
	Earned      *float64         `json:"earned"`
	Max         *float64         `json:"max"`
	Percentage  *float64         `json:"percentage"`
	NeedsReview bool             `json:"needsReview"`
	Feedback    string           `json:"feedback,omitempty"`
	Confidence  *float64         `json:"confidence,omitempty"`
	Breakdown   *types.Breakdown `json:"breakdown,omitempty"`
}

// BuildRecord pairs a student's oracle output with its reconciled verdicts.
// Question numbers come from the oracle when parseable, positional otherwise.
func BuildRecord(student types.StudentResult, reconciled []reconcile.ReconciledQuestion) Record {
	rec := Record{Questions: make([]QuestionRecord, 0, len(reconciled))}
	for i, rq := range reconciled {
		q := student.Results[i]

		qNo := i + 1
		if n, err := strconv.Atoi(string(q.QNum)); err == nil && n > 0 {
			qNo = n
		}

		rec.Questions = append(rec.Questions, QuestionRecord{
			QNo:         qNo,
			Earned:      rq.Earned,
			Max:         rq.Max,
			Percentage:  rq.Percentage,
			NeedsReview: rq.NeedsReview || q.ModelFlagged,
			Feedback:    q.Feedback,
			Confidence:  q.Confidence,
			Breakdown:   q.Breakdown,
		})
	}
	return rec
}

// FlaggedCount returns how many questions need human review.
func (r Record) FlaggedCount() int {
	count := 0
	for _, q := range r.Questions {
		if q.NeedsReview {
			count++
		}
	}
	return count
}
