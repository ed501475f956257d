// Package types provides type definitions for structured data shared across
// the exam-grader system: oracle wire shapes, grading records, and HTTP
// request DTOs.
package types

// Rationale is the oracle's structured justification for a question grade.
type Rationale struct {
	PointsAwarded  []string `json:"points_awarded"`
	PointsDeducted []string `json:"points_deducted"`
	ImprovementTip string   `json:"improvement_tip"`
}

// Breakdown splits an awarded score into method and final-answer credit.
type Breakdown struct {
	Method float64 `json:"method"`
	Final  float64 `json:"final"`
}

// QuestionGrade is a single question's grade as produced by the oracle.
// The shape is deliberately loose: structured numeric fields and the legacy
// embedded "x / y" score strings have both been observed in replies, and the
// reconciler must accept either without a discriminant field.
type QuestionGrade struct {
	QNum            FlexString `json:"q_num,omitempty"`
	StudentAnswer   string     `json:"student_answer,omitempty"`
	ProcessedAnswer string     `json:"processed_answer,omitempty"`
	ExpectedAnswer  string     `json:"expected_answer,omitempty"`

	MarksObtained *FlexFloat `json:"marks_obtained,omitempty"`
	MaxMarks      *FlexFloat `json:"max_marks,omitempty"`

	// Legacy free-text score carriers, checked in this order when a
	// numeric field above is missing.
	ScoreText    FlexString `json:"score_text,omitempty"`
	Score        FlexString `json:"score,omitempty"`
	ScoreTextAlt FlexString `json:"scoreText,omitempty"`

	Feedback         string     `json:"feedback,omitempty"`
	Rationale        *Rationale `json:"rationale,omitempty"`
	ConceptAlignment string     `json:"concept_alignment,omitempty"`

	// Carried from the canonical wire shape when present.
	Confidence   *float64   `json:"confidence,omitempty"`
	Breakdown    *Breakdown `json:"breakdown,omitempty"`
	ModelFlagged bool       `json:"model_flagged,omitempty"`
}

// StudentResult is one student's complete grade as returned by the oracle
// for a batch of scanned papers.
type StudentResult struct {
	StudentName string          `json:"student_name"`
	RollNo      string          `json:"roll_no"`
	Results     []QuestionGrade `json:"results"`
	TotalScore  *FlexFloat      `json:"total_score,omitempty"`
}

// OracleQuestion is the canonical wire shape announced to the oracle in the
// prompt's output contract and enforced by schemas/grade_result.schema.json.
type OracleQuestion struct {
	QNo         int       `json:"qNo"`
	Score       float64   `json:"score"`
	Max         float64   `json:"max"`
	Breakdown   Breakdown `json:"breakdown"`
	Confidence  float64   `json:"confidence"`
	NeedsReview bool      `json:"needsReview"`
	Rationale   string    `json:"rationale"`
}

// OracleResult is the canonical top-level reply shape.
type OracleResult struct {
	StudentName string           `json:"student_name,omitempty"`
	RollNo      string           `json:"roll_no,omitempty"`
	Questions   []OracleQuestion `json:"questions"`
}
