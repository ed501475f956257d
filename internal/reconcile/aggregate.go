package reconcile

import "github.com/jonathan/exam-grader/internal/types"

// Summary is a submission-level aggregate used by the dashboard.
type Summary struct {
	MaxScore   float64  `json:"max_score"`
	Obtained   float64  `json:"obtained"`
	Percentage *float64 `json:"percentage"`
}

// Aggregate computes a submission's total score against the total available
// marks. A stored total is authoritative when present; otherwise the
// per-question scores are summed. The percentage follows the same
// zero-denominator convention as SafePercent: nil, never a division by
// zero.
func Aggregate(result types.StudentResult) Summary {
	maxScore := 0.0
	summed := 0.0
	for _, q := range result.Results {
		if q.MaxMarks != nil {
			maxScore += float64(*q.MaxMarks)
		}
		if q.MarksObtained != nil {
			summed += float64(*q.MarksObtained)
		}
	}

	obtained := summed
	if result.TotalScore != nil {
		obtained = float64(*result.TotalScore)
	}

	return Summary{
		MaxScore:   maxScore,
		Obtained:   obtained,
		Percentage: SafePercent(&obtained, &maxScore),
	}
}
