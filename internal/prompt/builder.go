// Package prompt builds the grading instruction sent to the scoring oracle.
// Building is a pure function of its inputs: no I/O and no external calls,
// so identical inputs always produce the identical prompt.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/exam-grader/internal/prompts"
	"github.com/jonathan/exam-grader/internal/rubric"
)

const promptFile = "grading.json"

// Placeholder emitted when a context parameter is absent. An empty string
// is a deliberate caller choice and passes through verbatim; only a nil
// parameter triggers the placeholder.
const notProvided = "<not provided>"

var (
	header         = prompts.MustGet(promptFile, "grading-header")
	outputContract = prompts.MustGet(promptFile, "output-contract")
	batchContract  = prompts.MustGet(promptFile, "batch-contract")
)

// Build serializes a normalized rubric plus the answer-key and student
// context into a single newline-delimited instruction block. Callers must
// normalize the rubric first; a nil rubric skips the rubric sections while
// the header and output contract are always emitted.
func Build(nr *rubric.NormalizedRubric, answerKeyContext, studentContext *string) string {
	lines := []string{header}

	if nr != nil {
		lines = append(lines,
			fmt.Sprintf("Rubric version: %d", nr.Version),
			fmt.Sprintf("Total questions: %d", nr.TotalQuestions),
		)
		for _, q := range nr.Questions {
			lines = append(lines,
				fmt.Sprintf("Q%d: max marks %s. Notes: %s", q.QNo, formatNumber(q.Marks), q.Notes),
				policyLine(q.Policy),
			)
		}
	}

	lines = append(lines,
		"Answer key context:",
		orPlaceholder(answerKeyContext),
		"Student context:",
		orPlaceholder(studentContext),
		outputContract,
	)

	return strings.Join(lines, "\n")
}

// BuildBatch appends the multi-student batch contract to a standard grading
// prompt. The batch reply uses the legacy per-student array shape, decoded
// by the grading package's back-compat adapter.
func BuildBatch(nr *rubric.NormalizedRubric, answerKeyContext *string) string {
	return Build(nr, answerKeyContext, nil) + "\n" + batchContract
}

func policyLine(p rubric.NormalizedPolicy) string {
	line := fmt.Sprintf("Policy: allowsPartial=%t, requiresFinal=%t, methodWeight=%s%%, rounding=%s",
		p.AllowPartialCredit, p.RequiresFinalAnswer, formatNumber(p.MethodWeight), p.Rounding)
	if p.PolicyNotes != "" {
		line += ", notes=" + p.PolicyNotes
	}
	return line
}

func orPlaceholder(s *string) string {
	if s == nil {
		return notProvided
	}
	return *s
}

// formatNumber renders marks without a trailing decimal tail: 5 not 5.000000,
// but 2.5 stays 2.5.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
