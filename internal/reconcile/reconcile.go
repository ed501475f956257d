// Package reconcile extracts consistent numeric scores from heterogeneous
// oracle output. The oracle's reply shape is not strictly contracted:
// structured numeric fields and embedded "x / y" score strings have both
// been observed, so everything here is defensive. Malformed input degrades
// to nil or zero, never to an error.
package reconcile

import (
	"math"
	"regexp"
	"strconv"

	"github.com/jonathan/exam-grader/internal/types"
)

// scorePattern matches "earned/max" score strings, decimals allowed,
// with optional whitespace around the slash.
var scorePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*(\d+(?:\.\d+)?)`)

// ReconciledQuestion is the reconciler's per-question verdict.
type ReconciledQuestion struct {
	Earned      *float64 `json:"earned"`
	Max         *float64 `json:"max"`
	Percentage  *float64 `json:"percentage"`
	NeedsReview bool     `json:"needs_review"`
}

// ParseScore extracts the (earned, max) pair from a question grade.
// Direct numeric fields win; the free-text carriers (score_text, score,
// scoreText, in that order) fill only the sides still missing. Fields that
// cannot be resolved stay nil.
func ParseScore(q types.QuestionGrade) (earned, max *float64) {
	if q.MarksObtained != nil {
		earned = q.MarksObtained.Ptr()
	}
	if q.MaxMarks != nil {
		max = q.MaxMarks.Ptr()
	}
	if earned != nil && max != nil {
		return earned, max
	}

	for _, text := range []string{string(q.ScoreText), string(q.Score), string(q.ScoreTextAlt)} {
		m := scorePattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if earned == nil {
			earned = parseFloatPtr(m[1])
		}
		if max == nil {
			max = parseFloatPtr(m[2])
		}
		break
	}
	return earned, max
}

// SafePercent computes earned/max as a percentage rounded to one decimal
// place. It returns nil instead of dividing by a falsy denominator, and nil
// again if the result is somehow non-finite.
func SafePercent(earned, max *float64) *float64 {
	den := coerce(max)
	if den == 0 {
		return nil
	}
	pct := coerce(earned) / den * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return nil
	}
	rounded := math.Round(pct*10) / 10
	return &rounded
}

// NeedsReview flags a question for human review: a percentage below 50, or
// a zero/missing earned score (even when max is also unknown). An
// indeterminate percentage with a non-zero earned score passes.
func NeedsReview(earned, max *float64) bool {
	if pct := SafePercent(earned, max); pct != nil && *pct < 50 {
		return true
	}
	return coerce(earned) == 0
}

// Reconcile processes each question grade independently, preserving input
// order.
func Reconcile(questions []types.QuestionGrade) []ReconciledQuestion {
	out := make([]ReconciledQuestion, len(questions))
	for i, q := range questions {
		earned, max := ParseScore(q)
		out[i] = ReconciledQuestion{
			Earned:      earned,
			Max:         max,
			Percentage:  SafePercent(earned, max),
			NeedsReview: NeedsReview(earned, max),
		}
	}
	return out
}

// coerce mirrors the Number(x) || 0 rule: nil and non-finite values are
// treated as zero, not as errors.
func coerce(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

func parseFloatPtr(s string) *float64 {
	// The pattern only captures digit runs, so this cannot fail; keep the
	// nil path anyway for safety.
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
