// internal/workers/notification/send-notification/config.go
package sendnotification

import "time"

type Config struct {
	// SlackWebhookURL disables the Slack channel when empty.
	SlackWebhookURL string
	EmailEnabled    bool
	FromEmail       string
	Recipients      []string
	SNSEnabled      bool
	TopicARN        string
	Timeout         time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
