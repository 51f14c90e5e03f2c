// internal/models/record.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Record layout. Every artifact of a submission lives under
// requests/{timestamp}_{requestId}/.
const (
	RecordsRoot = "requests/"

	ArtifactRawInput    = "raw_input.json"
	ArtifactRawDeck     = "raw_deck.pdf"
	ArtifactDeckText    = "deck_text.json"
	ArtifactDeckSummary = "deck_summary.json"
	ArtifactScore       = "score.json"
)

// TimestampLayout is the ISO-8601 form used in record keys and
// submitted_at. Millisecond precision keeps keys lexically ordered.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in UTC with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// RecordKey addresses one submission's artifacts.
type RecordKey struct {
	Timestamp string
	RequestID string
}

// NewRecordKey mints the key for a submission received at t.
func NewRecordKey(t time.Time, requestID string) RecordKey {
	return RecordKey{Timestamp: FormatTimestamp(t), RequestID: requestID}
}

// Prefix returns requests/{timestamp}_{requestId}/.
func (k RecordKey) Prefix() string {
	return fmt.Sprintf("%s%s_%s/", RecordsRoot, k.Timestamp, k.RequestID)
}

// Artifact returns the full key of a named artifact.
func (k RecordKey) Artifact(name string) string {
	return k.Prefix() + name
}

// ParseRecordPrefix recovers the key from a listing entry such as
// "requests/2025-01-02T03:04:05.000Z_abc/". The request id is everything
// after the first underscore following the timestamp.
func ParseRecordPrefix(prefix string) (RecordKey, bool) {
	name := strings.TrimSuffix(strings.TrimPrefix(prefix, RecordsRoot), "/")
	if name == "" || strings.Contains(name, "/") {
		return RecordKey{}, false
	}
	idx := strings.Index(name, "_")
	if idx <= 0 || idx == len(name)-1 {
		return RecordKey{}, false
	}
	return RecordKey{Timestamp: name[:idx], RequestID: name[idx+1:]}, true
}

// RawInput is the first artifact of every record.
type RawInput struct {
	RequestID  string `json:"request_id"`
	ReceivedAt string `json:"received_at"`
	Intake     Intake `json:"intake"`
}

// DeckText holds the plain text extracted from raw_deck.pdf.
type DeckText struct {
	ExtractedAt string `json:"extracted_at"`
	Length      int    `json:"length"`
	Text        string `json:"text"`
}

// DeckSummary holds the oracle's brief of DeckText.
type DeckSummary struct {
	Summary   string `json:"summary"`
	CreatedAt string `json:"created_at"`
}

// BlobPaths reports which artifacts a submission wrote.
type BlobPaths struct {
	Input       string `json:"input"`
	Output      string `json:"output,omitempty"`
	Deck        string `json:"deck,omitempty"`
	DeckText    string `json:"deck_text,omitempty"`
	DeckSummary string `json:"deck_summary,omitempty"`
}

// RecordSummary is one row of the investments listing.
type RecordSummary struct {
	RequestID    string `json:"request_id"`
	StartupName  string `json:"startup_name"`
	Industry     string `json:"industry"`
	SubmittedAt  string `json:"submitted_at"`
	OverallScore int    `json:"overall_score"`
	Pass         bool   `json:"pass"`
}

// RecordDetail returns both artifacts exactly as stored.
type RecordDetail struct {
	RequestID   string          `json:"request_id"`
	SubmittedAt string          `json:"submitted_at"`
	Input       json.RawMessage `json:"input"`
	AIScore     json.RawMessage `json:"ai_score"`
}
