// Package schemas embeds the JSON Schema documents shipped with the grader.
package schemas

import _ "embed"

// GradeResult is the canonical oracle reply schema announced in the
// grading prompt's output contract.
//
//go:embed grade_result.schema.json
var GradeResult string
