// internal/workers/deck/extract-deck-text/models.go
package extractdecktext

type Input struct {
	RequestID string `json:"requestId"`
	PDF       []byte `json:"-"`
}

type Output struct {
	Text      string `json:"text"`
	Length    int    `json:"length"`
	PageCount int    `json:"pageCount"`
}
