// internal/workers/scoring/score-submission/models.go
package scoresubmission

import "pitch-scorer/internal/models"

type Input struct {
	RequestID   string        `json:"requestId"`
	Intake      models.Intake `json:"intake"`
	DeckSummary *string       `json:"deckSummary,omitempty"`
}

type Output struct {
	Score *models.ScoreOutput `json:"score"`
	// Repaired is true when the first reply failed and the repair call
	// produced the score.
	Repaired bool `json:"repaired"`
	// PassCorrected is true when the oracle's pass flag was overridden.
	PassCorrected bool `json:"passCorrected"`
}
