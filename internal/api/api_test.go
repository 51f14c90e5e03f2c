package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	apperrors "pitch-scorer/internal/common/errors"
	"pitch-scorer/internal/common/logger"
	"pitch-scorer/internal/models"
	"pitch-scorer/internal/pipeline"
	"pitch-scorer/internal/records"
	"pitch-scorer/internal/store/memory"
	"pitch-scorer/internal/testutil"
	extractdecktext "pitch-scorer/internal/workers/deck/extract-deck-text"
	summarizedeck "pitch-scorer/internal/workers/deck/summarize-deck"
	validateintake "pitch-scorer/internal/workers/intake/validate-intake"
	scoresubmission "pitch-scorer/internal/workers/scoring/score-submission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type fakeSubmitter struct {
	res   *pipeline.Result
	err   error
	calls int
	got   pipeline.Submission
}

func (f *fakeSubmitter) Submit(_ context.Context, sub pipeline.Submission) (*pipeline.Result, error) {
	f.calls++
	f.got = sub
	return f.res, f.err
}

type fakeRecords struct {
	summaries []models.RecordSummary
	detail    *models.RecordDetail
	err       error
}

func (f *fakeRecords) ListSummaries(context.Context) ([]models.RecordSummary, error) {
	return f.summaries, f.err
}

func (f *fakeRecords) GetDetail(_ context.Context, id string) (*models.RecordDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.detail == nil || f.detail.RequestID != id {
		return nil, records.ErrNotFound
	}
	return f.detail, nil
}

type fakeScorer struct{}

func (fakeScorer) Execute(context.Context, *scoresubmission.Input) (*scoresubmission.Output, error) {
	return &scoresubmission.Output{Score: &models.ScoreOutput{
		OverallScore: 13,
		CategoryScores: models.CategoryScores{
			Market:     models.CategoryScore{Score: 4, Reasoning: "big", Evidence: []string{"TAM"}, Detailed: true},
			Financials: models.CategoryScore{Score: 3, Reasoning: "ok", Evidence: []string{}, Detailed: true},
			Team:       models.CategoryScore{Score: 3, Reasoning: "ok", Evidence: []string{}, Detailed: true},
			Product:    models.CategoryScore{Score: 3, Reasoning: "ok", Evidence: []string{}, Detailed: true},
		},
		Confidence:          0.6,
		Summary:             "Borderline.",
		KeyRisks:            []string{},
		RecommendedNextStep: models.NextStepFollowUp,
		Pass:                true,
	}}, nil
}

type fakeSummarizer struct{}

func (fakeSummarizer) Execute(context.Context, *summarizedeck.Input) (*summarizedeck.Output, error) {
	return &summarizedeck.Output{Summary: "Deck summary."}, nil
}

// ==========================
// Test Helper Functions
// ==========================

func validFields() map[string]string {
	return map[string]string{
		"startup_name":    "Acme Robotics",
		"founder_email":   "jane@acme.io",
		"industry":        "Robotics",
		"stage":           "Seed",
		"location":        "Austin, TX",
		"one_liner":       "Warehouse picking robots",
		"problem":         "Picking labor is scarce",
		"solution":        "Autonomous picking arms",
		"traction":        "3 paid pilots",
		"revenue":         "$20k MRR",
		"team_background": "Ex-Amazon robotics",
		"deck_url":        "https://acme.io/deck.pdf",
	}
}

func multipartBody(t *testing.T, fields map[string]string, fileField, contentType string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="deck.pdf"`, fileField))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newTestRouter(t *testing.T, sub Submitter, rec RecordReader, opts Options) http.Handler {
	return NewHandler(sub, rec, opts, logger.NewTestLogger(t)).Router()
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]interface{}
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

// ==========================
// Submission Tests
// ==========================

func TestScoreInvestment_JSON(t *testing.T) {
	sub := &fakeSubmitter{res: &pipeline.Result{Success: true, RequestID: "abc123", SubmittedAt: "2025-01-02T03:04:05.006Z"}}
	router := newTestRouter(t, sub, &fakeRecords{}, Options{})

	payload, _ := json.Marshal(validFields())
	req := httptest.NewRequest(http.MethodPost, "/score-investment", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec, body := do(t, router, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "abc123", body["request_id"])

	assert.Equal(t, "Acme Robotics", sub.got.Fields["startup_name"])
	assert.Nil(t, sub.got.Deck)
}

func TestScoreInvestment_MultipartWithDeck(t *testing.T) {
	sub := &fakeSubmitter{res: &pipeline.Result{Success: true, RequestID: "abc123"}}
	router := newTestRouter(t, sub, &fakeRecords{}, Options{})

	pdf := testutil.MinimalPDF("Acme deck")
	body, ct := multipartBody(t, validFields(), "pitchDeck", "application/pdf", pdf)
	req := httptest.NewRequest(http.MethodPost, "/score-investment", body)
	req.Header.Set("Content-Type", ct)

	rec, _ := do(t, router, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pdf, sub.got.Deck)
	assert.Equal(t, "jane@acme.io", sub.got.Fields["founder_email"])
}

func TestScoreInvestment_MultipartWithoutDeck(t *testing.T) {
	sub := &fakeSubmitter{res: &pipeline.Result{Success: true}}
	router := newTestRouter(t, sub, &fakeRecords{}, Options{})

	body, ct := multipartBody(t, validFields(), "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/score-investment", body)
	req.Header.Set("Content-Type", ct)

	rec, _ := do(t, router, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, sub.got.Deck)
}

func TestScoreInvestment_RejectsBadUploads(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		file        []byte
		maxBytes    int64
	}{
		{"not a pdf", "image/png", []byte("\x89PNG"), 0},
		{"too large", "application/pdf", bytes.Repeat([]byte("x"), 2048), 1024},
		{"empty file", "application/pdf", []byte{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{}
			router := newTestRouter(t, sub, &fakeRecords{}, Options{MaxUploadBytes: tt.maxBytes})

			body, ct := multipartBody(t, validFields(), "pitchDeck", tt.contentType, tt.file)
			req := httptest.NewRequest(http.MethodPost, "/score-investment", body)
			req.Header.Set("Content-Type", ct)

			rec, resp := do(t, router, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, resp["success"])
			assert.Equal(t, string(apperrors.ErrCodeInvalidUpload), resp["code"])
			assert.Zero(t, sub.calls)
		})
	}
}

func TestScoreInvestment_InvalidJSON(t *testing.T) {
	sub := &fakeSubmitter{}
	router := newTestRouter(t, sub, &fakeRecords{}, Options{})

	for _, payload := range []string{`{"startup_name":`, `[1,2]`, `null`} {
		t.Run(payload, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/score-investment", strings.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")

			rec, resp := do(t, router, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, string(apperrors.ErrCodeIntakeValidationFailed), resp["code"])
		})
	}
	assert.Zero(t, sub.calls)
}

func TestScoreInvestment_PipelineErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *apperrors.StandardError
		wantFields bool
	}{
		{
			name: "validation",
			err: apperrors.NewIntakeValidationError([]apperrors.FieldViolation{
				{Field: "founder_email", Message: "must be a valid email", Code: "EMAIL"},
			}),
			wantFields: true,
		},
		{name: "scoring", err: apperrors.NewScoringError(errors.New("repaired reply still invalid"))},
		{name: "storage", err: apperrors.NewStorageWriteError("requests/x/raw_input.json", errors.New("reset"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{err: &pipeline.SubmissionError{
				RequestID: "req-9",
				State:     pipeline.StateInputPersisted,
				Err:       tt.err,
			}}
			router := newTestRouter(t, sub, &fakeRecords{}, Options{})

			payload, _ := json.Marshal(validFields())
			req := httptest.NewRequest(http.MethodPost, "/score-investment", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")

			rec, resp := do(t, router, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, resp["success"])
			assert.Equal(t, "req-9", resp["request_id"])
			assert.Equal(t, string(tt.err.Code), resp["code"])
			assert.NotEmpty(t, resp["error"])
			if tt.wantFields {
				assert.Len(t, resp["fields"], 1)
			} else {
				assert.NotContains(t, resp, "fields")
			}
		})
	}
}

// ==========================
// Read Tests
// ==========================

func TestListInvestments(t *testing.T) {
	t.Run("rows", func(t *testing.T) {
		rec := &fakeRecords{summaries: []models.RecordSummary{
			{RequestID: "b", StartupName: "B", Industry: "N/A", SubmittedAt: "2025-02-01T00:00:00.000Z", OverallScore: 9},
			{RequestID: "a", StartupName: "A", Industry: "AI", SubmittedAt: "2025-01-01T00:00:00.000Z", OverallScore: 15, Pass: true},
		}}
		router := newTestRouter(t, &fakeSubmitter{}, rec, Options{})

		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/investments", nil))
		assert.Equal(t, http.StatusOK, resp.Code)

		var got []models.RecordSummary
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
		assert.Equal(t, rec.summaries, got)
	})

	t.Run("empty", func(t *testing.T) {
		router := newTestRouter(t, &fakeSubmitter{}, &fakeRecords{}, Options{})

		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/investments", nil))
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `[]`, resp.Body.String())
	})

	t.Run("storage error", func(t *testing.T) {
		rec := &fakeRecords{err: apperrors.NewStorageReadError("requests/", errors.New("AccessDenied"))}
		router := newTestRouter(t, &fakeSubmitter{}, rec, Options{})

		resp, body := do(t, router, httptest.NewRequest(http.MethodGet, "/investments", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		assert.Equal(t, "Failed to list investments", body["error"])
	})
}

func TestGetInvestment(t *testing.T) {
	detail := &models.RecordDetail{
		RequestID:   "abc123",
		SubmittedAt: "2025-01-02T03:04:05.006Z",
		Input:       json.RawMessage(`{"request_id":"abc123"}`),
		AIScore:     json.RawMessage(`{"schema_version":"v1"}`),
	}

	tests := []struct {
		name       string
		records    *fakeRecords
		id         string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "found",
			records:    &fakeRecords{detail: detail},
			id:         "abc123",
			wantStatus: http.StatusOK,
			wantBody:   `{"request_id":"abc123","submitted_at":"2025-01-02T03:04:05.006Z","input":{"request_id":"abc123"},"ai_score":{"schema_version":"v1"}}`,
		},
		{
			name:       "not found",
			records:    &fakeRecords{detail: detail},
			id:         "missing",
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"Deal not found"}`,
		},
		{
			name:       "storage error",
			records:    &fakeRecords{err: apperrors.NewStorageReadError("k", errors.New("timeout"))},
			id:         "abc123",
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Failed to load deal"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &fakeSubmitter{}, tt.records, Options{})

			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/investments/"+tt.id, nil))
			assert.Equal(t, tt.wantStatus, resp.Code)
			assert.JSONEq(t, tt.wantBody, resp.Body.String())
		})
	}
}

// ==========================
// Health Tests
// ==========================

func TestHealthAndReady(t *testing.T) {
	ready := true
	router := newTestRouter(t, &fakeSubmitter{}, &fakeRecords{}, Options{
		Ready: func(context.Context) error {
			if !ready {
				return errors.New("store unreachable")
			}
			return nil
		},
	})

	resp, body := do(t, router, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "healthy", body["status"])

	resp, _ = do(t, router, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	ready = false
	resp, body = do(t, router, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, "store unreachable", body["error"])
}

func TestCORS(t *testing.T) {
	router := newTestRouter(t, &fakeSubmitter{}, &fakeRecords{}, Options{
		CORSAllowedOrigins: []string{"http://localhost:5173"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/investments", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, "http://localhost:5173", resp.Header().Get("Access-Control-Allow-Origin"))
}

// ==========================
// End-to-end Tests
// ==========================

func TestEndToEnd_SubmitListDetail(t *testing.T) {
	log := logger.NewTestLogger(t)
	st := memory.New()

	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Store:      st,
		Validator:  validateintake.NewHandler(validateintake.LoadConfig(), log),
		Extractor:  extractdecktext.NewHandler(extractdecktext.LoadConfig(), log),
		Summarizer: fakeSummarizer{},
		Scorer:     fakeScorer{},
		Logger:     log,
		Now:        func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	router := newTestRouter(t, orch, records.NewService(st, log), Options{})

	body, ct := multipartBody(t, validFields(), "pitchDeck", "application/pdf", testutil.MinimalPDF("Acme deck"))
	req := httptest.NewRequest(http.MethodPost, "/score-investment", body)
	req.Header.Set("Content-Type", ct)

	resp, submitted := do(t, router, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	requestID, _ := submitted["request_id"].(string)
	require.NotEmpty(t, requestID)

	paths, _ := submitted["blob_paths"].(map[string]interface{})
	assert.Contains(t, paths, "input")
	assert.Contains(t, paths, "output")
	assert.Contains(t, paths, "deck")

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/investments", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var list []models.RecordSummary
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, models.RecordSummary{
		RequestID:    requestID,
		StartupName:  "Acme Robotics",
		Industry:     "Robotics",
		SubmittedAt:  "2025-03-01T12:00:00.000Z",
		OverallScore: 13,
		Pass:         true,
	}, list[0])

	resp, detail := do(t, router, httptest.NewRequest(http.MethodGet, "/investments/"+requestID, nil))
	require.Equal(t, http.StatusOK, resp.Code)
	aiScore, _ := detail["ai_score"].(map[string]interface{})
	assert.Equal(t, "v2", aiScore["schema_version"])
}
