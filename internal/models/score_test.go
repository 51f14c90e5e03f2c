package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const v1Score = `{
  "overall_score": 14,
  "category_scores": {"market": 4, "financials": 3, "team": 4, "product": 3},
  "confidence": 0.78,
  "summary": "Solid team.",
  "key_risks": ["Risk one"],
  "recommended_next_step": "follow-up",
  "pass": true
}`

const v2Score = `{
  "overall_score": 12,
  "category_scores": {
    "market":     {"score": 3, "reasoning": "ok", "evidence": ["a"]},
    "financials": {"score": 3, "reasoning": "ok", "evidence": []},
    "team":       {"score": 3, "reasoning": "ok", "evidence": []},
    "product":    {"score": 3, "reasoning": "ok", "evidence": []}
  },
  "confidence": 0.5,
  "summary": "Early.",
  "key_risks": [],
  "recommended_next_step": "no",
  "pass": false
}`

func TestCategoryScore_RoundTripKeepsShape(t *testing.T) {
	var v1 ScoreOutput
	require.NoError(t, json.Unmarshal([]byte(v1Score), &v1))
	assert.Equal(t, SchemaV1, v1.SchemaVersion())
	assert.Equal(t, 14, v1.CategoryScores.Sum())

	out, err := json.Marshal(v1.CategoryScores)
	require.NoError(t, err)
	assert.JSONEq(t, `{"market":4,"financials":3,"team":4,"product":3}`, string(out))

	var v2 ScoreOutput
	require.NoError(t, json.Unmarshal([]byte(v2Score), &v2))
	assert.Equal(t, SchemaV2, v2.SchemaVersion())
	assert.Equal(t, "ok", v2.CategoryScores.Market.Reasoning)
	assert.Equal(t, []string{"a"}, v2.CategoryScores.Market.Evidence)

	out, err = json.Marshal(v2.CategoryScores.Team)
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":3,"reasoning":"ok","evidence":[]}`, string(out))
}

func TestCategoryScore_RejectsOtherTypes(t *testing.T) {
	var c CategoryScore
	assert.Error(t, json.Unmarshal([]byte(`"4"`), &c))
	assert.Error(t, json.Unmarshal([]byte(`4.5`), &c))
}

func TestScoreOutput_AcceptsIntegralFloats(t *testing.T) {
	doc := `{
	  "overall_score": 14.0,
	  "category_scores": {
	    "market": 4.0,
	    "financials": 3,
	    "team": {"score": 4.0, "reasoning": "ok", "evidence": []},
	    "product": 3.0
	  },
	  "confidence": 0.7,
	  "summary": "s",
	  "key_risks": [],
	  "recommended_next_step": "follow-up",
	  "pass": true
	}`

	var out ScoreOutput
	require.NoError(t, json.Unmarshal([]byte(doc), &out))
	assert.Equal(t, 14, out.OverallScore)
	assert.Equal(t, 4, out.CategoryScores.Market.Score)
	assert.Equal(t, 4, out.CategoryScores.Team.Score)
	assert.True(t, out.CategoryScores.Team.Detailed)
	assert.Equal(t, 14, out.CategoryScores.Sum())
	assert.Equal(t, "follow-up", out.RecommendedNextStep)
	assert.True(t, out.Pass)

	var bad ScoreOutput
	assert.Error(t, json.Unmarshal([]byte(`{"overall_score": 13.5}`), &bad))

	var c CategoryScore
	assert.Error(t, json.Unmarshal([]byte(`{"score": 2.5}`), &c))
}

func TestDecodeScoreArtifact(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		wantVersion SchemaVersion
		wantID      string
		wantOverall int
		wantErr     bool
	}{
		{
			name:        "tagged v2",
			doc:         `{"schema_version":"v2","request_id":"r1","scored_at":"t","score":` + v2Score + `}`,
			wantVersion: SchemaV2, wantID: "r1", wantOverall: 12,
		},
		{
			name:        "untagged wrapped v1",
			doc:         `{"request_id":"r2","scored_at":"t","score":` + v1Score + `}`,
			wantVersion: SchemaV1, wantID: "r2", wantOverall: 14,
		},
		{
			name:        "untagged flat v1",
			doc:         v1Score,
			wantVersion: SchemaV1, wantOverall: 14,
		},
		{
			name:    "tag disagrees with shape",
			doc:     `{"schema_version":"v1","request_id":"r3","score":` + v2Score + `}`,
			wantErr: true,
		},
		{
			name:    "unknown version",
			doc:     `{"schema_version":"v9","score":` + v1Score + `}`,
			wantErr: true,
		},
		{
			name:    "no payload",
			doc:     `{"request_id":"r4"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			doc:     `score`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art, err := DecodeScoreArtifact([]byte(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, art.SchemaVersion)
			assert.Equal(t, tt.wantID, art.RequestID)
			assert.Equal(t, tt.wantOverall, art.Score.OverallScore)
		})
	}
}

func TestNewScoreArtifact_StampsVersion(t *testing.T) {
	var v2 ScoreOutput
	require.NoError(t, json.Unmarshal([]byte(v2Score), &v2))

	art := NewScoreArtifact("abc", "2025-01-01T00:00:00.000Z", &v2)
	assert.Equal(t, SchemaV2, art.SchemaVersion)

	data, err := json.Marshal(art)
	require.NoError(t, err)

	back, err := DecodeScoreArtifact(data)
	require.NoError(t, err)
	assert.Equal(t, SchemaV2, back.SchemaVersion)
	assert.Equal(t, v2.CategoryScores, back.Score.CategoryScores)
}

func TestPassFor(t *testing.T) {
	assert.True(t, PassFor(13, DefaultPassThreshold))
	assert.False(t, PassFor(12, DefaultPassThreshold))
}

func TestRecordKey(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 890_000_000, time.UTC)
	key := NewRecordKey(ts, "abc123")

	assert.Equal(t, "requests/2025-03-04T05:06:07.890Z_abc123/", key.Prefix())
	assert.Equal(t, "requests/2025-03-04T05:06:07.890Z_abc123/score.json", key.Artifact(ArtifactScore))

	parsed, ok := ParseRecordPrefix(key.Prefix())
	require.True(t, ok)
	assert.Equal(t, key, parsed)

	_, ok = ParseRecordPrefix("requests/no-underscore/")
	assert.False(t, ok)
	_, ok = ParseRecordPrefix("requests/")
	assert.False(t, ok)
}
