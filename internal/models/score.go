// internal/models/score.go
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// SchemaVersion tags the shape of category_scores in a stored score.
type SchemaVersion string

const (
	// SchemaV1 stores each category as a bare integer.
	SchemaV1 SchemaVersion = "v1"
	// SchemaV2 stores each category as {score, reasoning, evidence}.
	SchemaV2 SchemaVersion = "v2"
)

const (
	NextStepNo        = "no"
	NextStepFollowUp  = "follow-up"
	NextStepDiligence = "diligence"

	// DefaultPassThreshold is the overall score a pitch needs to pass.
	DefaultPassThreshold = 13
	MaxCategoryScore     = 5
	MaxOverallScore      = 20
)

var (
	ErrUnknownSchemaVersion = errors.New("unknown score schema version")
	ErrScoreShape           = errors.New("score does not match schema version")
)

// CategoryScore is one scored dimension. Detailed records whether it was
// read from (and should be written back as) the object form.
type CategoryScore struct {
	Score     int      `json:"score"`
	Reasoning string   `json:"reasoning"`
	Evidence  []string `json:"evidence"`
	Detailed  bool     `json:"-"`
}

// integral is an int that also accepts JSON numbers written with a zero
// fractional part, such as 4.0.
type integral int

func (n *integral) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return fmt.Errorf("%v is not an integer", f)
	}
	*n = integral(f)
	return nil
}

type detailedCategory struct {
	Score     integral `json:"score"`
	Reasoning string   `json:"reasoning"`
	Evidence  []string `json:"evidence"`
}

func (c *CategoryScore) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var d detailedCategory
		if err := json.Unmarshal(trimmed, &d); err != nil {
			return err
		}
		*c = CategoryScore{Score: int(d.Score), Reasoning: d.Reasoning, Evidence: d.Evidence, Detailed: true}
		return nil
	}
	var n integral
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("category score must be an integer or an object: %w", err)
	}
	*c = CategoryScore{Score: int(n)}
	return nil
}

func (c CategoryScore) MarshalJSON() ([]byte, error) {
	if !c.Detailed {
		return json.Marshal(c.Score)
	}
	evidence := c.Evidence
	if evidence == nil {
		evidence = []string{}
	}
	return json.Marshal(detailedCategory{Score: integral(c.Score), Reasoning: c.Reasoning, Evidence: evidence})
}

type CategoryScores struct {
	Market     CategoryScore `json:"market"`
	Financials CategoryScore `json:"financials"`
	Team       CategoryScore `json:"team"`
	Product    CategoryScore `json:"product"`
}

func (c CategoryScores) all() []CategoryScore {
	return []CategoryScore{c.Market, c.Financials, c.Team, c.Product}
}

// Sum adds the four category scores.
func (c CategoryScores) Sum() int {
	total := 0
	for _, s := range c.all() {
		total += s.Score
	}
	return total
}

// ScoreOutput is the structured evaluation produced by the scorer.
type ScoreOutput struct {
	OverallScore        int            `json:"overall_score"`
	CategoryScores      CategoryScores `json:"category_scores"`
	Confidence          float64        `json:"confidence"`
	Summary             string         `json:"summary"`
	KeyRisks            []string       `json:"key_risks"`
	RecommendedNextStep string         `json:"recommended_next_step"`
	Pass                bool           `json:"pass"`
}

// UnmarshalJSON accepts overall_score written as 14 or 14.0.
func (s *ScoreOutput) UnmarshalJSON(data []byte) error {
	type plain ScoreOutput
	aux := struct {
		*plain
		OverallScore integral `json:"overall_score"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.OverallScore = int(aux.OverallScore)
	return nil
}

// SchemaVersion reports v2 when any category is in object form.
func (s *ScoreOutput) SchemaVersion() SchemaVersion {
	for _, c := range s.CategoryScores.all() {
		if c.Detailed {
			return SchemaV2
		}
	}
	return SchemaV1
}

// PassFor applies the pass rule to an overall score.
func PassFor(overall, threshold int) bool {
	return overall >= threshold
}

// ScoreArtifact is what score.json holds.
type ScoreArtifact struct {
	SchemaVersion SchemaVersion `json:"schema_version"`
	RequestID     string        `json:"request_id"`
	ScoredAt      string        `json:"scored_at"`
	Score         *ScoreOutput  `json:"score"`
}

// NewScoreArtifact stamps score with its schema version.
func NewScoreArtifact(requestID, scoredAt string, score *ScoreOutput) *ScoreArtifact {
	return &ScoreArtifact{
		SchemaVersion: score.SchemaVersion(),
		RequestID:     requestID,
		ScoredAt:      scoredAt,
		Score:         score,
	}
}

// ==========================
// Versioned decoding
// ==========================

// ScoreDecoder turns the "score" payload of a given version into a ScoreOutput.
type ScoreDecoder func(raw json.RawMessage) (*ScoreOutput, error)

var scoreDecoders = map[SchemaVersion]ScoreDecoder{
	SchemaV1: decodeScoreV1,
	SchemaV2: decodeScoreV2,
}

func decodeScoreV1(raw json.RawMessage) (*ScoreOutput, error) {
	return decodeScoreShape(raw, false)
}

func decodeScoreV2(raw json.RawMessage) (*ScoreOutput, error) {
	return decodeScoreShape(raw, true)
}

func decodeScoreShape(raw json.RawMessage, detailed bool) (*ScoreOutput, error) {
	var out ScoreOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	for _, c := range out.CategoryScores.all() {
		if c.Detailed != detailed {
			return nil, ErrScoreShape
		}
	}
	return &out, nil
}

// DecodeScoreArtifact reads score.json in any known shape:
//
//   - tagged: {"schema_version": "v2", "request_id", "scored_at", "score": {...}}
//   - untagged wrapped: {"request_id", "scored_at", "score": {...}}
//   - untagged flat: {"overall_score": ..., "category_scores": ...}
//
// Untagged artifacts get their version from the category shape.
func DecodeScoreArtifact(data []byte) (*ScoreArtifact, error) {
	var envelope struct {
		SchemaVersion SchemaVersion   `json:"schema_version"`
		RequestID     string          `json:"request_id"`
		ScoredAt      string          `json:"scored_at"`
		Score         json.RawMessage `json:"score"`
		OverallScore  json.RawMessage `json:"overall_score"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode score artifact: %w", err)
	}

	payload := envelope.Score
	if len(payload) == 0 || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		if len(envelope.OverallScore) == 0 {
			return nil, fmt.Errorf("decode score artifact: no score payload")
		}
		payload = data
	}

	version := envelope.SchemaVersion
	if version == "" {
		version = sniffVersion(payload)
	}

	decode, ok := scoreDecoders[version]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchemaVersion, version)
	}
	score, err := decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode score %s: %w", version, err)
	}

	return &ScoreArtifact{
		SchemaVersion: version,
		RequestID:     envelope.RequestID,
		ScoredAt:      envelope.ScoredAt,
		Score:         score,
	}, nil
}

func sniffVersion(payload json.RawMessage) SchemaVersion {
	var probe struct {
		CategoryScores map[string]json.RawMessage `json:"category_scores"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return SchemaV1
	}
	for _, raw := range probe.CategoryScores {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			return SchemaV2
		}
	}
	return SchemaV1
}
