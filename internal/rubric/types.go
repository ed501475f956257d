// Package rubric provides rubric normalization for AI-assisted exam grading.
// A rubric is authored once per exam through the dashboard form and persisted
// as loose JSON, so every field here tolerates missing or malformed input.
package rubric

import (
	"math"

	"github.com/jonathan/exam-grader/internal/types"
)

// Rounding controls how per-question scores are rounded when a grader
// applies manual overrides.
type Rounding string

// Supported rounding modes.
const (
	RoundingNone        Rounding = "none"
	RoundingNearestHalf Rounding = "nearest-0.5"
	RoundingNearestQtr  Rounding = "nearest-0.25"
)

// normalize maps unknown or empty rounding values to RoundingNone.
func (r Rounding) normalize() Rounding {
	switch r {
	case RoundingNearestHalf, RoundingNearestQtr:
		return r
	default:
		return RoundingNone
	}
}

// MarkingPolicy holds the per-question marking rules. Pointer fields on the
// input side distinguish absent from zero so that each field can be
// defaulted independently.
type MarkingPolicy struct {
	AllowPartialCredit  *bool            `json:"allowPartialCredit,omitempty"`
	RequiresFinalAnswer *bool            `json:"requiresFinalAnswer,omitempty"`
	MethodWeight        *types.FlexFloat `json:"methodWeight,omitempty"`
	Rounding            Rounding         `json:"rounding,omitempty"`
	PolicyNotes         string           `json:"policyNotes,omitempty"`
}

// QuestionSpec is a single question as authored. The incoming qNo is never
// trusted; Normalize reassigns sequential numbers.
type QuestionSpec struct {
	QNo    int             `json:"qNo,omitempty"`
	Marks  types.FlexFloat `json:"marks"`
	Notes  string          `json:"notes,omitempty"`
	Policy *MarkingPolicy  `json:"policy,omitempty"`
}

// Rubric is the user-authored grading scheme. NumQuestions is the declared
// count and may disagree with len(Questions); Normalize reconciles the two
// by padding or truncating.
type Rubric struct {
	Version      int              `json:"version,omitempty"`
	NumQuestions *types.FlexFloat `json:"numQuestions,omitempty"`
	Questions    []QuestionSpec   `json:"questions"`
}

// NormalizedPolicy is a fully populated marking policy.
type NormalizedPolicy struct {
	AllowPartialCredit  bool     `json:"allowPartialCredit"`
	RequiresFinalAnswer bool     `json:"requiresFinalAnswer"`
	MethodWeight        float64  `json:"methodWeight"`
	Rounding            Rounding `json:"rounding"`
	PolicyNotes         string   `json:"policyNotes"`
}

// FinalAnswerWeight returns the share of credit attributable to the final
// answer, the complement of MethodWeight.
func (p NormalizedPolicy) FinalAnswerWeight() float64 {
	return 100 - p.MethodWeight
}

// Round rounds a score according to the policy's rounding mode.
func (p NormalizedPolicy) Round(v float64) float64 {
	switch p.Rounding {
	case RoundingNearestHalf:
		return math.Round(v*2) / 2
	case RoundingNearestQtr:
		return math.Round(v*4) / 4
	default:
		return v
	}
}

// NormalizedQuestion is a fully populated question spec with a sequential,
// 1-based question number.
type NormalizedQuestion struct {
	QNo    int              `json:"qNo"`
	Marks  float64          `json:"marks"`
	Notes  string           `json:"notes"`
	Policy NormalizedPolicy `json:"policy"`
}

// NormalizedRubric is the canonical rubric form consumed by the prompt
// builder. It is always safe to serialize: no field is ever absent.
type NormalizedRubric struct {
	Version        int                  `json:"version"`
	TotalQuestions int                  `json:"totalQuestions"`
	TotalMarks     float64              `json:"totalMarks"`
	Questions      []NormalizedQuestion `json:"questions"`
}
