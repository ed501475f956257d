package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	internalschemas "github.com/jonathan/exam-grader/internal/schemas"
	"github.com/jonathan/exam-grader/schemas"
)

var validateSchemaPath string

var validateCommand = &cobra.Command{
	Use:   "validate [grade result file]",
	Short: "Validate a grade result JSON file against the canonical schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidateCmd,
}

func init() {
	validateCommand.Flags().StringVar(&validateSchemaPath, "schema", "", "Validate against this schema file instead of the built-in one")
	rootCmd.AddCommand(validateCommand)
}

func runValidateCmd(_ *cobra.Command, args []string) error {
	if validateSchemaPath != "" {
		if err := internalschemas.ValidateJSON(validateSchemaPath, args[0]); err != nil {
			return err
		}
		fmt.Println("valid")
		return nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := internalschemas.ValidateJSONString(schemas.GradeResult, string(data)); err != nil {
		return err
	}

	fmt.Println("valid")
	return nil
}
