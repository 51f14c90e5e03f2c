package records

import (
	"context"
	"errors"
	"testing"

	apperrors "pitch-scorer/internal/common/errors"
	"pitch-scorer/internal/common/logger"
	"pitch-scorer/internal/models"
	"pitch-scorer/internal/store"
	"pitch-scorer/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func put(t *testing.T, s store.Store, key, body string) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), key, []byte(body), store.ContentTypeJSON))
}

const (
	nestedInput = `{
  "request_id": "abc123",
  "received_at": "2025-01-02T03:04:05.006Z",
  "intake": {"startup_name": "Acme Robotics", "industry": "Robotics"}
}`
	taggedScore = `{
  "schema_version": "v2",
  "request_id": "abc123",
  "scored_at": "2025-01-02T03:04:09.000Z",
  "score": {
    "overall_score": 14,
    "category_scores": {
      "market": {"score": 4, "reasoning": "", "evidence": []},
      "financials": {"score": 3, "reasoning": "", "evidence": []},
      "team": {"score": 4, "reasoning": "", "evidence": []},
      "product": {"score": 3, "reasoning": "", "evidence": []}
    },
    "confidence": 0.8,
    "summary": "ok",
    "key_risks": [],
    "recommended_next_step": "diligence",
    "pass": true
  }
}`
	flatScore = `{"overall_score": 9, "category_scores": {"market": 3, "financials": 2, "team": 2, "product": 2}, "confidence": 0.4, "summary": "weak", "key_risks": [], "recommended_next_step": "no", "pass": false}`
)

// errStore fails every call with err.
type errStore struct {
	store.Store
	getErr  error
	listErr error
}

func (e *errStore) List(ctx context.Context, prefix string) ([]string, error) {
	if e.listErr != nil {
		return nil, e.listErr
	}
	return e.Store.List(ctx, prefix)
}

func (e *errStore) Get(ctx context.Context, key string) ([]byte, error) {
	if e.getErr != nil {
		return nil, e.getErr
	}
	return e.Store.Get(ctx, key)
}

// ==========================
// Listing Tests
// ==========================

func TestService_ListSummaries_SkipsPartialRecords(t *testing.T) {
	s := memory.New()

	// complete
	put(t, s, "requests/2025-01-02T03:04:05.006Z_abc123/raw_input.json", nestedInput)
	put(t, s, "requests/2025-01-02T03:04:05.006Z_abc123/score.json", taggedScore)
	// in flight: no score yet
	put(t, s, "requests/2025-01-03T00:00:00.000Z_inflight/raw_input.json", nestedInput)
	// corrupt score
	put(t, s, "requests/2025-01-04T00:00:00.000Z_broken/raw_input.json", nestedInput)
	put(t, s, "requests/2025-01-04T00:00:00.000Z_broken/score.json", `{"overall_score": `)

	svc := NewService(s, logger.NewTestLogger(t))
	got, err := svc.ListSummaries(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []models.RecordSummary{{
		RequestID:    "abc123",
		StartupName:  "Acme Robotics",
		Industry:     "Robotics",
		SubmittedAt:  "2025-01-02T03:04:05.006Z",
		OverallScore: 14,
		Pass:         true,
	}}, got)
}

func TestService_ListSummaries_LegacyShapesAndOrder(t *testing.T) {
	s := memory.New()

	put(t, s, "requests/2024-12-01T00:00:00.000Z_old/raw_input.json", `{"startup_name": "Flat Co", "industry": "Fintech"}`)
	put(t, s, "requests/2024-12-01T00:00:00.000Z_old/score.json", flatScore)

	put(t, s, "requests/2025-02-01T00:00:00.000Z_new/raw_input.json", `{"request_id": "new", "intake": {}}`)
	put(t, s, "requests/2025-02-01T00:00:00.000Z_new/score.json", `{"request_id": "new", "scored_at": "x", "score": `+flatScore+`}`)

	put(t, s, "requests/2025-01-15T00:00:00.000Z_mid/raw_input.json", nestedInput)
	put(t, s, "requests/2025-01-15T00:00:00.000Z_mid/score.json", taggedScore)

	// stray object and a prefix without a request id
	put(t, s, "requests/README.json", `{}`)
	put(t, s, "requests/notakey/raw_input.json", `{}`)

	svc := NewService(s, logger.NewTestLogger(t))
	got, err := svc.ListSummaries(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "new", got[0].RequestID)
	assert.Equal(t, UnknownStartup, got[0].StartupName)
	assert.Equal(t, UnknownIndustry, got[0].Industry)
	assert.Equal(t, 9, got[0].OverallScore)
	assert.False(t, got[0].Pass)

	assert.Equal(t, "mid", got[1].RequestID)
	assert.Equal(t, "Acme Robotics", got[1].StartupName)

	assert.Equal(t, "old", got[2].RequestID)
	assert.Equal(t, "Flat Co", got[2].StartupName)
	assert.Equal(t, "Fintech", got[2].Industry)
}

func TestService_ListSummaries_Empty(t *testing.T) {
	svc := NewService(memory.New(), logger.NewTestLogger(t))

	got, err := svc.ListSummaries(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestService_ListSummaries_StorageErrors(t *testing.T) {
	base := memory.New()
	put(t, base, "requests/2025-01-02T03:04:05.006Z_abc123/raw_input.json", nestedInput)
	put(t, base, "requests/2025-01-02T03:04:05.006Z_abc123/score.json", taggedScore)

	tests := []struct {
		name  string
		store *errStore
	}{
		{"list fails", &errStore{Store: base, listErr: errors.New("AccessDenied")}},
		{"get fails", &errStore{Store: base, getErr: errors.New("connection reset")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.store, logger.NewTestLogger(t))
			_, err := svc.ListSummaries(context.Background())
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStorageReadFailed))
		})
	}
}

// ==========================
// Detail Tests
// ==========================

func TestService_GetDetail(t *testing.T) {
	s := memory.New()
	put(t, s, "requests/2025-01-02T03:04:05.006Z_abc123/raw_input.json", nestedInput)
	put(t, s, "requests/2025-01-02T03:04:05.006Z_abc123/score.json", taggedScore)
	put(t, s, "requests/2025-01-02T03:04:05.006Z_xabc123/raw_input.json", `{}`)

	svc := NewService(s, logger.NewTestLogger(t))
	got, err := svc.GetDetail(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, "abc123", got.RequestID)
	assert.Equal(t, "2025-01-02T03:04:05.006Z", got.SubmittedAt)
	assert.Equal(t, nestedInput, string(got.Input))
	assert.Equal(t, taggedScore, string(got.AIScore))
}

func TestService_GetDetail_NotFound(t *testing.T) {
	s := memory.New()
	put(t, s, "requests/2025-01-02T03:04:05.006Z_abc123/raw_input.json", nestedInput)
	put(t, s, "requests/2025-01-03T00:00:00.000Z_done/raw_input.json", nestedInput)
	put(t, s, "requests/2025-01-03T00:00:00.000Z_done/score.json", taggedScore)

	svc := NewService(s, logger.NewTestLogger(t))

	for _, id := range []string{"missing", "", "abc", "abc123", "done/../x"} {
		t.Run(id, func(t *testing.T) {
			_, err := svc.GetDetail(context.Background(), id)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestService_GetDetail_CorruptArtifact(t *testing.T) {
	s := memory.New()
	put(t, s, "requests/2025-01-02T03:04:05.006Z_abc123/raw_input.json", nestedInput)
	put(t, s, "requests/2025-01-02T03:04:05.006Z_abc123/score.json", `{"overall_score":`)

	svc := NewService(s, logger.NewTestLogger(t))
	_, err := svc.GetDetail(context.Background(), "abc123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStorageReadFailed))
}
