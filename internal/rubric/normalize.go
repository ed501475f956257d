package rubric

import "math"

// Normalized rubric version. The raw Version field is informational only;
// normalization always stamps the canonical form.
const normalizedVersion = 1

// Policy defaults applied when the author leaves a field unset.
const (
	defaultMethodWeight = 70
)

// Normalize converts a possibly-malformed rubric into its canonical form:
// a fixed-length question list with sequential 1-based numbers, fully
// populated policies, and a recomputed mark total. The input is never
// mutated and degenerate input never fails; an empty rubric normalizes to
// an empty, zero-total rubric.
func Normalize(r Rubric) NormalizedRubric {
	declared := float64(len(r.Questions))
	if r.NumQuestions != nil {
		declared = float64(*r.NumQuestions)
	}
	total := int(math.Max(0, math.Floor(declared)))

	questions := make([]NormalizedQuestion, total)
	totalMarks := 0.0
	for i := 0; i < total; i++ {
		var src QuestionSpec
		if i < len(r.Questions) {
			src = r.Questions[i]
		}

		q := NormalizedQuestion{
			QNo:    i + 1,
			Marks:  coerceMarks(float64(src.Marks)),
			Notes:  src.Notes,
			Policy: normalizePolicy(src.Policy),
		}
		totalMarks += q.Marks
		questions[i] = q
	}

	return NormalizedRubric{
		Version:        normalizedVersion,
		TotalQuestions: total,
		TotalMarks:     totalMarks,
		Questions:      questions,
	}
}

// coerceMarks guards against NaN and infinities sneaking in through code
// paths that bypass JSON decoding.
func coerceMarks(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// normalizePolicy fills every policy field, defaulting each one
// independently when the source is nil or partially populated.
func normalizePolicy(p *MarkingPolicy) NormalizedPolicy {
	out := NormalizedPolicy{
		AllowPartialCredit:  true,
		RequiresFinalAnswer: false,
		MethodWeight:        defaultMethodWeight,
		Rounding:            RoundingNone,
		PolicyNotes:         "",
	}
	if p == nil {
		return out
	}

	if p.AllowPartialCredit != nil {
		out.AllowPartialCredit = *p.AllowPartialCredit
	}
	if p.RequiresFinalAnswer != nil {
		out.RequiresFinalAnswer = *p.RequiresFinalAnswer
	}
	if p.MethodWeight != nil {
		out.MethodWeight = clampWeight(float64(*p.MethodWeight))
	}
	out.Rounding = p.Rounding.normalize()
	out.PolicyNotes = p.PolicyNotes
	return out
}

// clampWeight coerces the method weight into [0, 100]. Non-finite values
// collapse to zero before clamping.
func clampWeight(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return math.Min(100, math.Max(0, v))
}
