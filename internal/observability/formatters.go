// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/exam-grader/internal/grading"
	"github.com/jonathan/exam-grader/internal/rubric"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRubric outputs a human-readable summary of the normalized rubric.
func (p *Printer) PrintRubric(nr *rubric.NormalizedRubric) {
	if nr == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Questions:    %d\n", nr.TotalQuestions))
	sb.WriteString(fmt.Sprintf("Total marks:  %.1f\n", nr.TotalMarks))
	sb.WriteString("\n")

	count := min(len(nr.Questions), maxItemsToShow)
	for i := 0; i < count; i++ {
		q := nr.Questions[i]
		sb.WriteString(fmt.Sprintf("Q%d  %.1f marks", q.QNo, q.Marks))
		if q.Policy.AllowPartialCredit {
			sb.WriteString(fmt.Sprintf(", method %.0f%%", q.Policy.MethodWeight))
		}
		if q.Policy.Rounding != rubric.RoundingNone {
			sb.WriteString(fmt.Sprintf(", %s", q.Policy.Rounding))
		}
		sb.WriteString("\n")
		if q.Notes != "" {
			note := q.Notes
			if len(note) > 45 {
				note = note[:42] + "..."
			}
			sb.WriteString(fmt.Sprintf("    %s\n", note))
		}
	}
	if len(nr.Questions) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more questions\n", len(nr.Questions)-maxItemsToShow))
	}

	p.printBox("NORMALIZED RUBRIC", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintReport outputs one student's grading outcome with per-question scores.
func (p *Printer) PrintReport(report *grading.StudentReport) {
	if report == nil {
		return
	}

	var sb strings.Builder

	name := report.StudentName
	if name == "" {
		name = "(unnamed)"
	}
	sb.WriteString(fmt.Sprintf("Student:  %s\n", name))
	if report.RollNo != "" {
		sb.WriteString(fmt.Sprintf("Roll no:  %s\n", report.RollNo))
	}

	sb.WriteString(fmt.Sprintf("Score:    %.1f / %.1f", report.Summary.Obtained, report.Summary.MaxScore))
	if report.Summary.Percentage != nil {
		sb.WriteString(fmt.Sprintf(" (%.1f%%)", *report.Summary.Percentage))
	}
	sb.WriteString("\n\n")

	flagged := 0
	for i, q := range report.Questions {
		sb.WriteString(fmt.Sprintf("Q%d  ", i+1))
		if q.Earned != nil && q.Max != nil {
			sb.WriteString(fmt.Sprintf("%.1f/%.1f", *q.Earned, *q.Max))
		} else {
			sb.WriteString("-/-")
		}
		if q.NeedsReview {
			sb.WriteString("  [review]")
			flagged++
		}
		sb.WriteString("\n")
	}

	if flagged > 0 {
		sb.WriteString(fmt.Sprintf("\n%d question(s) flagged for review", flagged))
	}

	p.printBox("GRADE REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunSummary outputs aggregate numbers for a whole grading run.
func (p *Printer) PrintRunSummary(reports []grading.StudentReport) {
	if len(reports) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Students graded: %d\n", len(reports)))

	flagged := 0
	var pctSum float64
	pctCount := 0
	for _, r := range reports {
		for _, q := range r.Questions {
			if q.NeedsReview {
				flagged++
				break
			}
		}
		if r.Summary.Percentage != nil {
			pctSum += *r.Summary.Percentage
			pctCount++
		}
	}

	if pctCount > 0 {
		sb.WriteString(fmt.Sprintf("Average:         %.1f%%\n", pctSum/float64(pctCount)))
	}
	sb.WriteString(fmt.Sprintf("Need review:     %d", flagged))

	p.printBox("RUN SUMMARY", sb.String())
}
