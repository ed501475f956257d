// Package main provides the entry point for the exam grader CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "grader",
	Short: "AI-assisted exam grading",
	Long:  "Grader scores scanned handwritten exam papers against a marking rubric using a vision model, reconciles the scores, and flags low-confidence answers for human review.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
