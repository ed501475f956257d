package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/exam-grader/internal/rubric"
)

var rubricCommand = &cobra.Command{
	Use:   "rubric [rubric file]",
	Short: "Normalize a rubric and print its canonical form",
	Long: `Reads a rubric JSON file, applies normalization (sequential question
numbers, fully populated marking policies, recomputed totals), and prints the
canonical form. Useful for checking what the grader will actually work from.`,
	Args: cobra.ExactArgs(1),
	RunE: runRubricCmd,
}

func init() {
	rootCmd.AddCommand(rubricCommand)
}

func runRubricCmd(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read rubric file: %w", err)
	}

	var rb rubric.Rubric
	if err := json.Unmarshal(data, &rb); err != nil {
		return fmt.Errorf("failed to parse rubric JSON: %w", err)
	}

	nr := rubric.Normalize(rb)
	out, err := json.MarshalIndent(nr, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal normalized rubric: %w", err)
	}

	fmt.Println(string(out))
	return nil
}
