// internal/workers/deck/summarize-deck/models.go
package summarizedeck

type Input struct {
	RequestID string `json:"requestId"`
	Text      string `json:"text"`
}

type Output struct {
	Summary string `json:"summary"`
}
