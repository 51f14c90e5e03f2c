// internal/workers/intake/validate-intake/models.go
package validateintake

import "pitch-scorer/internal/models"

type Input struct {
	RequestID string                 `json:"requestId"`
	Fields    map[string]interface{} `json:"fields"`
}

type Output struct {
	Intake models.Intake `json:"intake"`
}
