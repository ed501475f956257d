package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/exam-grader/internal/grading"
	"github.com/jonathan/exam-grader/internal/llm"
	"github.com/jonathan/exam-grader/internal/review"
)

// fakeOracle returns scripted replies and records what it was asked.
type fakeOracle struct {
	mu    sync.Mutex
	reply string
	err   error
	docs  [][]llm.Document
}

func (f *fakeOracle) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GradeDocuments(ctx, prompt, nil, tier)
}

func (f *fakeOracle) GradeDocuments(ctx context.Context, prompt string, docs []llm.Document, tier llm.ModelTier) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, docs)
	return f.reply, f.err
}

func (f *fakeOracle) GetModel(tier llm.ModelTier) string { return "fake-model" }

func (f *fakeOracle) Close() error { return nil }

// newTestServer wires a server around a scripted oracle and no database.
// Grading without exam_id never touches the store, so nil is safe here.
func newTestServer(oracle llm.Client) *Server {
	return &Server{
		oracle:   oracle,
		grader:   grading.NewService(oracle, nil),
		reviewer: review.NewSession(nil),
	}
}

const canonicalReply = `{
	"questions": [
		{"qNo": 1, "score": 4, "max": 5, "needsReview": false, "rationale": "ok"},
		{"qNo": 2, "score": 1, "max": 5, "needsReview": true, "rationale": "weak"}
	]
}`

func postGrade(t *testing.T, s *Server, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/grade", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	s.handleGrade(w, req)
	return w
}

func TestHandleGrade_Success(t *testing.T) {
	oracle := &fakeOracle{reply: canonicalReply}
	s := newTestServer(oracle)

	w := postGrade(t, s, GradeRequest{
		Papers: []PaperPayload{
			{StudentName: "Asha", RollNo: "R-1", Documents: []DocumentPayload{{MIMEType: "application/pdf", Data: []byte("scan")}}},
		},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp GradeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Reports, 1)

	r := resp.Reports[0]
	assert.Equal(t, "Asha", r.StudentName)
	assert.Equal(t, 5.0, r.Summary.Obtained)
	assert.Equal(t, 10.0, r.Summary.MaxScore)
	require.NotNil(t, r.Summary.Percentage)
	assert.Equal(t, 50.0, *r.Summary.Percentage)
}

func TestHandleGrade_DefaultMIMEType(t *testing.T) {
	oracle := &fakeOracle{reply: canonicalReply}
	s := newTestServer(oracle)

	w := postGrade(t, s, GradeRequest{
		Papers: []PaperPayload{
			{Documents: []DocumentPayload{{Data: []byte("scan")}}},
		},
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, oracle.docs, 1)
	require.Len(t, oracle.docs[0], 1)
	assert.Equal(t, "application/pdf", oracle.docs[0][0].MIMEType)
}

func TestHandleGrade_NoPapers(t *testing.T) {
	s := newTestServer(&fakeOracle{})

	w := postGrade(t, s, GradeRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation error: papers")
}

func TestHandleGrade_PaperWithoutDocuments(t *testing.T) {
	s := newTestServer(&fakeOracle{})

	w := postGrade(t, s, GradeRequest{Papers: []PaperPayload{{StudentName: "Asha"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGrade_InvalidBody(t *testing.T) {
	s := newTestServer(&fakeOracle{})

	req := httptest.NewRequest(http.MethodPost, "/grade", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	s.handleGrade(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGrade_InvalidExamID(t *testing.T) {
	s := newTestServer(&fakeOracle{})

	w := postGrade(t, s, GradeRequest{
		ExamID: "not-a-uuid",
		Papers: []PaperPayload{{Documents: []DocumentPayload{{Data: []byte("x")}}}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation error: exam_id")
}

func TestHandleGrade_OracleError(t *testing.T) {
	s := newTestServer(&fakeOracle{err: errors.New("quota exceeded")})

	w := postGrade(t, s, GradeRequest{
		Papers: []PaperPayload{{Documents: []DocumentPayload{{Data: []byte("x")}}}},
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "quota exceeded")
}

func TestHandleGrade_Batch(t *testing.T) {
	oracle := &fakeOracle{reply: `[
		{"student_name": "Asha", "roll_no": "R-1", "results": [{"q_num": 1, "marks_obtained": 4, "max_marks": 5}]},
		{"student_name": "Ravi", "roll_no": "R-2", "results": [{"q_num": 1, "marks_obtained": 2, "max_marks": 5}]}
	]`}
	s := newTestServer(oracle)

	w := postGrade(t, s, GradeRequest{
		Batch: true,
		Pages: []DocumentPayload{{Data: []byte("bundle")}},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp GradeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Reports, 2)
	assert.Equal(t, "Asha", resp.Reports[0].StudentName)
	assert.Equal(t, "Ravi", resp.Reports[1].StudentName)
}

func TestHandleGrade_BatchWithoutPages(t *testing.T) {
	s := newTestServer(&fakeOracle{})

	w := postGrade(t, s, GradeRequest{Batch: true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation error: pages")
}

func TestHandleGradeStream(t *testing.T) {
	oracle := &fakeOracle{reply: canonicalReply}
	s := newTestServer(oracle)

	payload, err := json.Marshal(GradeRequest{
		Papers: []PaperPayload{
			{StudentName: "Asha", Documents: []DocumentPayload{{Data: []byte("scan")}}},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/grade/stream", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	s.handleGradeStream(w, req)

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: progress")
	assert.Contains(t, body, `"stage":"start"`)
	assert.Contains(t, body, `"stage":"done"`)
	assert.Contains(t, body, "event: complete")
	assert.Contains(t, body, `"student_name":"Asha"`)
}

func TestHandleGradeStream_ManyPapers(t *testing.T) {
	oracle := &fakeOracle{reply: canonicalReply}
	s := newTestServer(oracle)

	papers := make([]PaperPayload, 8)
	for i := range papers {
		papers[i] = PaperPayload{
			StudentName: fmt.Sprintf("Student %d", i),
			Documents:   []DocumentPayload{{Data: []byte("scan")}},
		}
	}
	payload, err := json.Marshal(GradeRequest{Papers: papers})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/grade/stream", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	s.handleGradeStream(w, req)

	// Papers grade concurrently; every frame must still arrive whole
	body := w.Body.String()
	assert.Equal(t, 8, strings.Count(body, `"stage":"graded"`))
	for _, line := range strings.Split(body, "\n") {
		if line == "" || strings.HasPrefix(line, "event: ") || strings.HasPrefix(line, "data: ") {
			continue
		}
		t.Fatalf("torn SSE frame: %q", line)
	}
	assert.Contains(t, body, "event: complete")
}

func TestHandleGradeStream_OracleError(t *testing.T) {
	s := newTestServer(&fakeOracle{err: errors.New("quota exceeded")})

	payload, err := json.Marshal(GradeRequest{
		Papers: []PaperPayload{{Documents: []DocumentPayload{{Data: []byte("x")}}}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/grade/stream", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	s.handleGradeStream(w, req)

	assert.Contains(t, w.Body.String(), "event: error")
	assert.Contains(t, w.Body.String(), "quota exceeded")
}

func TestGradeRequest_ContextPresence(t *testing.T) {
	var req GradeRequest
	require.NoError(t, json.Unmarshal([]byte(`{"answer_key_context": ""}`), &req))

	// Empty string and absent are different states
	require.NotNil(t, req.AnswerKeyContext)
	assert.Equal(t, "", *req.AnswerKeyContext)

	var absent GradeRequest
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	assert.Nil(t, absent.AnswerKeyContext)
}

func TestHandleGradeHealth(t *testing.T) {
	s := newTestServer(&fakeOracle{})

	req := httptest.NewRequest(http.MethodGet, "/grade/health", nil)
	w := httptest.NewRecorder()
	s.handleGradeHealth(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"model":"fake-model"`)
}
