// internal/workers/notification/send-notification/models.go
package sendnotification

import "pitch-scorer/internal/models"

type Input struct {
	Notification models.ScoringNotification `json:"notification"`
}

type ChannelResult struct {
	Channel string `json:"channel"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

type Output struct {
	NotificationID string          `json:"notificationId"`
	Results        []ChannelResult `json:"results"`
	SentAt         string          `json:"sentAt"`
}

// Delivered reports whether at least one channel accepted the message.
func (o *Output) Delivered() bool {
	for _, r := range o.Results {
		if r.Status == models.StatusSent {
			return true
		}
	}
	return false
}
