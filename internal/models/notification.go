// internal/models/notification.go
package models

// ScoringNotification is the payload fanned out to every notification
// channel once a submission has been scored.
type ScoringNotification struct {
	RequestID    string  `json:"requestId"`
	StartupName  string  `json:"startupName"`
	OverallScore int     `json:"overallScore"`
	Pass         bool    `json:"pass"`
	Confidence   float64 `json:"confidence"`
	Summary      string  `json:"summary"`
}

// Notification channels.
const (
	ChannelSlack = "slack"
	ChannelEmail = "email"
	ChannelSNS   = "sns"
)

// Delivery statuses.
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)
