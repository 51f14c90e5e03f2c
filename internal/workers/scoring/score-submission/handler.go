// internal/workers/scoring/score-submission/handler.go
package scoresubmission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pitch-scorer/internal/common/llm"
	"pitch-scorer/internal/common/logger"
	"pitch-scorer/internal/common/metrics"
	"pitch-scorer/internal/models"
)

const (
	TaskType = "score-submission"
)

var (
	ErrScoring = errors.New("SCORING_FAILED")
)

// attempt is the verdict on one oracle reply.
type attempt struct {
	score         *models.ScoreOutput
	problems      []string
	passCorrected bool
}

func (a attempt) ok() bool { return a.score != nil && len(a.problems) == 0 }

type Handler struct {
	config *Config
	oracle llm.Oracle
	logger logger.Logger
}

func NewHandler(config *Config, oracle llm.Oracle, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		oracle: oracle,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	log := h.logger.WithFields(map[string]interface{}{"requestId": input.RequestID})

	out, err := h.score(ctx, log, input.Intake, input.DeckSummary)
	if err != nil {
		log.Error("scoring failed", map[string]interface{}{"error": err})
		return nil, err
	}

	log.Info("submission scored", map[string]interface{}{
		"overallScore":  out.Score.OverallScore,
		"pass":          out.Score.Pass,
		"schemaVersion": string(out.Score.SchemaVersion()),
		"repaired":      out.Repaired,
	})
	return out, nil
}

// Score asks the oracle for an evaluation and validates it, spending at most
// one repair call on a reply that does not parse or fails the checks.
func (h *Handler) Score(ctx context.Context, intake models.Intake, deckSummary *string) (*models.ScoreOutput, error) {
	out, err := h.score(ctx, h.logger, intake, deckSummary)
	if err != nil {
		return nil, err
	}
	return out.Score, nil
}

func (h *Handler) score(ctx context.Context, log logger.Logger, intake models.Intake, deckSummary *string) (*Output, error) {
	system := systemPrompt(h.threshold())

	raw, err := h.generate(ctx, system, buildScoringPrompt(intake, deckSummary))
	if err != nil {
		return nil, err
	}

	first := h.check(raw)
	if first.ok() {
		h.logPassCorrection(log, first)
		return &Output{Score: first.score, PassCorrected: first.passCorrected}, nil
	}

	log.Warn("score reply rejected, requesting repair", map[string]interface{}{
		"problems": first.problems,
	})

	repairedRaw, err := h.generate(ctx, system, buildRepairPrompt(raw, first.problems, h.threshold()))
	if err != nil {
		metrics.ScoringRepairs.WithLabelValues("failed").Inc()
		return nil, err
	}

	second := h.check(repairedRaw)
	if !second.ok() {
		metrics.ScoringRepairs.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: repaired reply still invalid: %s", ErrScoring, strings.Join(second.problems, "; "))
	}

	metrics.ScoringRepairs.WithLabelValues("succeeded").Inc()
	h.logPassCorrection(log, second)
	return &Output{Score: second.score, Repaired: true, PassCorrected: second.passCorrected}, nil
}

func (h *Handler) generate(ctx context.Context, system, prompt string) (string, error) {
	raw, err := h.oracle.Generate(ctx, llm.Request{System: system, Prompt: prompt, JSON: true})
	if err != nil {
		if errors.Is(err, llm.ErrTimeout) {
			return "", fmt.Errorf("%w: %w", ErrScoring, err)
		}
		return "", fmt.Errorf("%w: oracle call: %v", ErrScoring, err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: %w", ErrScoring, llm.ErrEmptyResponse)
	}
	return raw, nil
}

// check parses raw and runs the schema and cross-field checks on it.
func (h *Handler) check(raw string) attempt {
	res, err := scoreSchema.ValidateBytes([]byte(raw))
	if err != nil {
		return attempt{problems: []string{fmt.Sprintf("output is not valid JSON: %v", err)}}
	}
	if !res.Valid {
		return attempt{problems: res.GetErrorMessages()}
	}

	var score models.ScoreOutput
	if err := json.Unmarshal([]byte(raw), &score); err != nil {
		return attempt{problems: []string{fmt.Sprintf("output does not decode: %v", err)}}
	}

	var problems []string
	if sum := score.CategoryScores.Sum(); score.OverallScore != sum {
		problems = append(problems, fmt.Sprintf("overall_score: %d does not equal the sum of category scores %d", score.OverallScore, sum))
	}
	if mixedShapes(score.CategoryScores) {
		problems = append(problems, "category_scores: all categories must use the same shape")
	}

	expected := models.PassFor(score.OverallScore, h.threshold())
	corrected := false
	if score.Pass != expected {
		if h.config.StrictPass {
			problems = append(problems, fmt.Sprintf("pass: must be %t for overall_score %d", expected, score.OverallScore))
		} else {
			score.Pass = expected
			corrected = true
		}
	}
	if len(problems) > 0 {
		return attempt{problems: problems}
	}

	if score.KeyRisks == nil {
		score.KeyRisks = []string{}
	}
	return attempt{score: &score, passCorrected: corrected}
}

func (h *Handler) logPassCorrection(log logger.Logger, a attempt) {
	if !a.passCorrected {
		return
	}
	log.Warn("oracle pass flag disagreed with threshold, overriding", map[string]interface{}{
		"overallScore": a.score.OverallScore,
		"threshold":    h.threshold(),
		"pass":         a.score.Pass,
	})
}

func (h *Handler) threshold() int {
	if h.config.PassThreshold <= 0 {
		return models.DefaultPassThreshold
	}
	return h.config.PassThreshold
}

func mixedShapes(c models.CategoryScores) bool {
	d := c.Market.Detailed
	return c.Financials.Detailed != d || c.Team.Detailed != d || c.Product.Detailed != d
}
