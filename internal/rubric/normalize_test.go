package rubric

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/exam-grader/internal/types"
)

func flexPtr(v float64) *types.FlexFloat {
	f := types.FlexFloat(v)
	return &f
}

func boolPtr(v bool) *bool {
	return &v
}

func TestNormalizePadsToDeclaredCount(t *testing.T) {
	r := Rubric{
		NumQuestions: flexPtr(3),
		Questions: []QuestionSpec{
			{Marks: 2},
			{Marks: 3},
		},
	}

	n := Normalize(r)

	require.Equal(t, 3, n.TotalQuestions)
	require.Len(t, n.Questions, 3)
	assert.Equal(t, 2.0, n.Questions[0].Marks)
	assert.Equal(t, 3.0, n.Questions[1].Marks)
	assert.Equal(t, 0.0, n.Questions[2].Marks, "padded question carries zero marks")
	assert.Equal(t, 5.0, n.TotalMarks)
}

func TestNormalizeTruncatesToDeclaredCount(t *testing.T) {
	r := Rubric{
		NumQuestions: flexPtr(1),
		Questions: []QuestionSpec{
			{Marks: 4},
			{Marks: 6},
		},
	}

	n := Normalize(r)

	require.Equal(t, 1, n.TotalQuestions)
	assert.Equal(t, 4.0, n.TotalMarks)
}

func TestNormalizeQuestionNumbers(t *testing.T) {
	r := Rubric{
		Questions: []QuestionSpec{
			{QNo: 9, Marks: 1},
			{QNo: 0, Marks: 1},
			{QNo: -3, Marks: 1},
		},
	}

	n := Normalize(r)

	require.Equal(t, len(n.Questions), n.TotalQuestions)
	for i, q := range n.Questions {
		assert.Equal(t, i+1, q.QNo, "qNo is assigned sequentially, never trusted")
	}
}

func TestNormalizeDeclaredCountEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		declared *types.FlexFloat
		supplied int
		expected int
	}{
		{"negative declared count", flexPtr(-2), 3, 0},
		{"fractional declared count floors", flexPtr(2.9), 1, 2},
		{"missing declared count uses list length", nil, 4, 4},
		{"zero questions", flexPtr(0), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs := make([]QuestionSpec, tt.supplied)
			n := Normalize(Rubric{NumQuestions: tt.declared, Questions: qs})
			assert.Equal(t, tt.expected, n.TotalQuestions)
			assert.Len(t, n.Questions, tt.expected)
		})
	}
}

func TestNormalizePolicyDefaults(t *testing.T) {
	n := Normalize(Rubric{Questions: []QuestionSpec{{Marks: 5}}})

	p := n.Questions[0].Policy
	assert.True(t, p.AllowPartialCredit)
	assert.False(t, p.RequiresFinalAnswer)
	assert.Equal(t, 70.0, p.MethodWeight)
	assert.Equal(t, RoundingNone, p.Rounding)
	assert.Equal(t, "", p.PolicyNotes)
}

func TestNormalizePolicyPartialDefaults(t *testing.T) {
	r := Rubric{Questions: []QuestionSpec{{
		Marks: 5,
		Policy: &MarkingPolicy{
			AllowPartialCredit: boolPtr(false),
			PolicyNotes:        "strict",
		},
	}}}

	p := Normalize(r).Questions[0].Policy
	assert.False(t, p.AllowPartialCredit, "explicit value kept")
	assert.False(t, p.RequiresFinalAnswer, "absent field defaulted")
	assert.Equal(t, 70.0, p.MethodWeight, "absent field defaulted")
	assert.Equal(t, "strict", p.PolicyNotes)
}

func TestNormalizeMethodWeightClamp(t *testing.T) {
	tests := []struct {
		name     string
		weight   float64
		expected float64
	}{
		{"above range", 150, 100},
		{"below range", -10, 0},
		{"in range", 55, 55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Rubric{Questions: []QuestionSpec{{
				Policy: &MarkingPolicy{MethodWeight: flexPtr(tt.weight)},
			}}}
			p := Normalize(r).Questions[0].Policy
			assert.Equal(t, tt.expected, p.MethodWeight)
		})
	}
}

func TestNormalizeUnknownRounding(t *testing.T) {
	r := Rubric{Questions: []QuestionSpec{{
		Policy: &MarkingPolicy{Rounding: Rounding("nearest-0.1")},
	}}}
	assert.Equal(t, RoundingNone, Normalize(r).Questions[0].Policy.Rounding)
}

func TestNormalizeTotalMarksRecomputed(t *testing.T) {
	r := Rubric{Questions: []QuestionSpec{{Marks: 1.5}, {Marks: 2.5}, {Marks: 0}}}
	n := Normalize(r)

	sum := 0.0
	for _, q := range n.Questions {
		sum += q.Marks
	}
	assert.Equal(t, sum, n.TotalMarks)
	assert.Equal(t, 4.0, n.TotalMarks)
}

func TestNormalizeIdempotent(t *testing.T) {
	r := Rubric{
		NumQuestions: flexPtr(3),
		Questions: []QuestionSpec{
			{Marks: 2, Notes: "show working"},
			{Marks: 3, Policy: &MarkingPolicy{MethodWeight: flexPtr(40), Rounding: RoundingNearestHalf}},
		},
	}

	first := Normalize(r)

	// Re-feed the normalized form through the raw shape, as the prompt
	// builder path does when a rubric is read back from storage.
	data, err := json.Marshal(first)
	require.NoError(t, err)
	var again Rubric
	require.NoError(t, json.Unmarshal(data, &again))

	second := Normalize(again)
	assert.Equal(t, first, second)
}

func TestNormalizeMarksCoercion(t *testing.T) {
	tests := []struct {
		name     string
		rawJSON  string
		expected float64
	}{
		{"numeric string", `{"questions":[{"marks":"7.5"}]}`, 7.5},
		{"plain number", `{"questions":[{"marks":4}]}`, 4},
		{"garbage string", `{"questions":[{"marks":"ten"}]}`, 0},
		{"null marks", `{"questions":[{"marks":null}]}`, 0},
		{"missing marks", `{"questions":[{}]}`, 0},
		{"boolean marks", `{"questions":[{"marks":true}]}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Rubric
			require.NoError(t, json.Unmarshal([]byte(tt.rawJSON), &r))
			n := Normalize(r)
			require.Len(t, n.Questions, 1)
			assert.Equal(t, tt.expected, n.Questions[0].Marks)
		})
	}
}

func TestPolicyRound(t *testing.T) {
	tests := []struct {
		name     string
		rounding Rounding
		in       float64
		expected float64
	}{
		{"none keeps value", RoundingNone, 3.33, 3.33},
		{"nearest half rounds up", RoundingNearestHalf, 3.3, 3.5},
		{"nearest half rounds down", RoundingNearestHalf, 3.2, 3.0},
		{"nearest quarter", RoundingNearestQtr, 3.3, 3.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NormalizedPolicy{Rounding: tt.rounding}
			assert.InDelta(t, tt.expected, p.Round(tt.in), 1e-9)
		})
	}
}
