package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/exam-grader/internal/config"
	"github.com/jonathan/exam-grader/internal/db"
	"github.com/jonathan/exam-grader/internal/grading"
	"github.com/jonathan/exam-grader/internal/llm"
	"github.com/jonathan/exam-grader/internal/observability"
	"github.com/jonathan/exam-grader/internal/rubric"
	"github.com/jonathan/exam-grader/internal/types"
)

var gradeCommand = &cobra.Command{
	Use:   "grade [paper files...]",
	Short: "Grade scanned exam papers from the command line",
	Long: `Grades one or more scanned papers against a rubric and writes the grade
reports as JSON. Each file argument is one student's paper; with --batch all
files are treated as pages of a single bundle containing multiple students.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGradeCmd,
}

var (
	gradeConfigPath       string
	gradeRubric           string
	gradeAnswerKey        string
	gradeAnswerKeyContext string
	gradeMarksPerQ        float64
	gradeTemperature      float64
	gradeBatch            bool
	gradeVerbose          bool
	gradeAPIKey           string
	gradeModel            string
	gradeOut              string
	gradeExamID           string
	gradeDatabaseURL      string
)

func init() {
	// Config file flag (processed first)
	gradeCommand.Flags().StringVar(&gradeConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	gradeCommand.Flags().StringVarP(&gradeRubric, "rubric", "r", "", "Path to rubric JSON file")
	gradeCommand.Flags().StringVarP(&gradeAnswerKey, "answer-key", "k", "", "Path to answer key PDF or image")
	gradeCommand.Flags().StringVar(&gradeAnswerKeyContext, "answer-key-context", "", "Free-text notes about the answer key")
	gradeCommand.Flags().Float64Var(&gradeMarksPerQ, "marks-per-question", 0, "Fallback marks for rubric questions without marks")
	gradeCommand.Flags().Float64Var(&gradeTemperature, "temperature", 0, "Sampling temperature for grading calls")
	gradeCommand.Flags().BoolVar(&gradeBatch, "batch", false, "Treat the files as one bundle containing multiple students")
	gradeCommand.Flags().BoolVarP(&gradeVerbose, "verbose", "v", false, "Print detailed grade reports to stderr")
	gradeCommand.Flags().StringVarP(&gradeOut, "out", "o", "", "Write reports JSON to this file instead of stdout")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	gradeCommand.Flags().StringVar(&gradeAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	gradeCommand.Flags().StringVar(&gradeModel, "model", "", "Model override for the standard grading tier")

	// Persistence is optional on the CLI path
	gradeCommand.Flags().StringVar(&gradeExamID, "exam-id", "", "Exam UUID to persist submissions under (requires a database)")
	gradeCommand.Flags().StringVar(&gradeDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(gradeCommand)
}

func runGradeCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.Config
	if gradeConfigPath != "" {
		loadedCfg, err := config.LoadConfig(gradeConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return err
		}
		cfg = *loadedCfg
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	if cmd.Flags().Changed("rubric") {
		cfg.Rubric = gradeRubric
	}
	if cmd.Flags().Changed("answer-key") {
		cfg.AnswerKey = gradeAnswerKey
	}
	if cmd.Flags().Changed("marks-per-question") {
		cfg.MarksPerQuestion = gradeMarksPerQ
	}
	if cmd.Flags().Changed("temperature") {
		cfg.Temperature = gradeTemperature
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = gradeAPIKey
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = gradeModel
	}
	if cmd.Flags().Changed("batch") {
		cfg.Batch = gradeBatch
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = gradeVerbose
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = gradeDatabaseURL
	}

	// Step 3: Apply defaults for unset values
	cfg = cfg.MergeWithDefaults(config.Config{})

	// Step 4: API key handling
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}

	// Step 5: Load inputs
	rb, err := loadRubricFile(cfg.Rubric, cfg.MarksPerQuestion)
	if err != nil {
		return err
	}

	var answerKey []llm.Document
	if cfg.AnswerKey != "" {
		doc, err := readDocument(cfg.AnswerKey)
		if err != nil {
			return fmt.Errorf("failed to read answer key: %w", err)
		}
		answerKey = []llm.Document{doc}
	}

	docs := make([]llm.Document, 0, len(args))
	for _, path := range args {
		doc, err := readDocument(path)
		if err != nil {
			return fmt.Errorf("failed to read paper %s: %w", path, err)
		}
		docs = append(docs, doc)
	}

	// Step 6: Optional persistence
	var store *db.DB
	examID := uuid.Nil
	if gradeExamID != "" {
		examID, err = uuid.Parse(gradeExamID)
		if err != nil {
			return fmt.Errorf("invalid exam-id format: %w", err)
		}

		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("--exam-id requires DATABASE_URL or --db-url")
		}

		store, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer store.Close()
	}

	// Step 7: Build the oracle client
	llmConfig := llm.DefaultGeminiConfig()
	if cfg.Temperature > 0 {
		llmConfig = llmConfig.WithTemperature(float32(cfg.Temperature))
	}
	if cfg.Model != "" {
		llmConfig = llmConfig.WithModel(llm.TierStandard, cfg.Model)
	}

	oracle, err := llm.NewClient(ctx, llmConfig, cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create oracle client: %w", err)
	}
	defer oracle.Close() //nolint:errcheck

	printer := observability.NewPrinter(os.Stderr)
	if cfg.Verbose && rb != nil {
		nr := rubric.Normalize(*rb)
		printer.PrintRubric(&nr)
	}

	var onProgress grading.ProgressCallback
	if cfg.Verbose {
		onProgress = func(event grading.ProgressEvent) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", event.Stage, event.Message)
		}
	}

	var akContext *string
	if gradeAnswerKeyContext != "" {
		akContext = &gradeAnswerKeyContext
	}

	// Step 8: Grade
	svc := grading.NewService(oracle, store)

	var reports []grading.StudentReport
	if cfg.Batch {
		reports, err = svc.GradeBatch(ctx, grading.BatchRequest{
			ExamID:           examID,
			Rubric:           rb,
			AnswerKeyContext: akContext,
			AnswerKey:        answerKey,
			Pages:            docs,
			Tier:             llm.TierStandard,
			OnProgress:       onProgress,
		})
	} else {
		papers := make([]grading.Paper, 0, len(docs))
		for i, doc := range docs {
			papers = append(papers, grading.Paper{
				RollNo:    rollFromFilename(args[i]),
				Documents: []llm.Document{doc},
			})
		}
		reports, err = svc.GradeExam(ctx, grading.Request{
			ExamID:           examID,
			Rubric:           rb,
			AnswerKeyContext: akContext,
			AnswerKey:        answerKey,
			Papers:           papers,
			Tier:             llm.TierStandard,
			OnProgress:       onProgress,
		})
	}
	if err != nil {
		return err
	}

	if cfg.Verbose {
		for i := range reports {
			printer.PrintReport(&reports[i])
		}
		printer.PrintRunSummary(reports)
	}

	return writeReports(reports, gradeOut)
}

// loadRubricFile reads and parses a rubric JSON file. Questions without
// marks get fallbackMarks when it is positive. A nil rubric is valid; the
// prompt builder degrades to unstructured grading.
func loadRubricFile(path string, fallbackMarks float64) (*rubric.Rubric, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rubric file: %w", err)
	}

	var rb rubric.Rubric
	if err := json.Unmarshal(data, &rb); err != nil {
		return nil, fmt.Errorf("failed to parse rubric JSON: %w", err)
	}

	if fallbackMarks > 0 {
		for i := range rb.Questions {
			if rb.Questions[i].Marks == 0 {
				rb.Questions[i].Marks = types.FlexFloat(fallbackMarks)
			}
		}
	}

	return &rb, nil
}

// readDocument loads a scan file and infers its MIME type from the extension.
func readDocument(path string) (llm.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return llm.Document{}, err
	}
	return llm.Document{MIMEType: mimeFromExt(path), Data: data}, nil
}

func mimeFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/pdf"
	}
}

// rollFromFilename uses the file name stem as a provisional roll number so
// results stay attributable even when the model cannot read one off the scan.
func rollFromFilename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeReports(reports []grading.StudentReport, outPath string) error {
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal reports: %w", err)
	}

	if outPath == "" {
		fmt.Println(string(data))
		return nil
	}

	if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return nil
}
