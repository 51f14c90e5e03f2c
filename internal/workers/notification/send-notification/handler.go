// internal/workers/notification/send-notification/handler.go
package sendnotification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	apperrors "pitch-scorer/internal/common/errors"
	commonhttp "pitch-scorer/internal/common/http"
	"pitch-scorer/internal/common/logger"
	"pitch-scorer/internal/common/metrics"
	"pitch-scorer/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
)

const (
	TaskType = "send-notification"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type WebhookPoster interface {
	PostJSON(ctx context.Context, url string, payload interface{}) error
}

type Handler struct {
	config    *Config
	webhook   WebhookPoster
	sesClient SESService
	snsClient SNSService
	logger    logger.Logger
}

// NewHandler wires the channels. A nil webhook poster gets a default client;
// nil SES or SNS clients leave those channels disabled.
func NewHandler(config *Config, webhook WebhookPoster, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	if webhook == nil {
		webhook = commonhttp.NewClient(config.Timeout)
	}
	return &Handler{
		config:    config,
		webhook:   webhook,
		sesClient: sesClient,
		snsClient: snsClient,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Execute delivers n to every enabled channel. A failing channel is logged
// and reported in the output; it never stops the others and never surfaces
// as an error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	n := input.Notification

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	output := &Output{
		NotificationID: uuid.New().String(),
		SentAt:         time.Now().UTC().Format(time.RFC3339),
	}

	output.Results = append(output.Results,
		h.deliver(ctx, n, models.ChannelSlack, h.slackEnabled(), h.sendSlack),
		h.deliver(ctx, n, models.ChannelEmail, h.emailEnabled(), h.sendEmail),
		h.deliver(ctx, n, models.ChannelSNS, h.snsEnabled(), h.publishSNS),
	)

	h.logger.Info("notification processed", map[string]interface{}{
		"requestId":      n.RequestID,
		"notificationId": output.NotificationID,
		"results":        output.Results,
	})
	return output, nil
}

func (h *Handler) deliver(ctx context.Context, n models.ScoringNotification, channel string, enabled bool,
	send func(context.Context, models.ScoringNotification) error) ChannelResult {

	result := ChannelResult{Channel: channel, Status: models.StatusDisabled}
	if enabled {
		if err := send(ctx, n); err != nil {
			sendErr := apperrors.NewNotificationSendError(channel, err)
			h.logger.Error("notification channel failed", map[string]interface{}{
				"requestId": n.RequestID,
				"channel":   channel,
				"errorCode": sendErr.Code,
				"error":     sendErr.Details,
			})
			result.Status = models.StatusFailed
			result.Error = sendErr.Error()
		} else {
			result.Status = models.StatusSent
		}
	}
	metrics.NotificationsTotal.WithLabelValues(channel, result.Status).Inc()
	return result
}

func (h *Handler) slackEnabled() bool {
	return strings.TrimSpace(h.config.SlackWebhookURL) != ""
}

func (h *Handler) emailEnabled() bool {
	return h.config.EmailEnabled && h.sesClient != nil && len(h.config.Recipients) > 0
}

func (h *Handler) snsEnabled() bool {
	return h.config.SNSEnabled && h.snsClient != nil && h.config.TopicARN != ""
}

// ==========================
// Channels
// ==========================

func (h *Handler) sendSlack(ctx context.Context, n models.ScoringNotification) error {
	return h.webhook.PostJSON(ctx, h.config.SlackWebhookURL, buildSlackMessage(n))
}

func (h *Handler) sendEmail(ctx context.Context, n models.ScoringNotification) error {
	subject, err := renderTemplate(emailSubject, n)
	if err != nil {
		return err
	}
	body, err := renderTemplate(emailBody, n)
	if err != nil {
		return err
	}

	_, err = h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: h.config.Recipients,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) publishSNS(ctx context.Context, n models.ScoringNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	subject, err := renderTemplate(emailSubject, n)
	if err != nil {
		return err
	}
	_, err = h.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(h.config.TopicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(payload)),
	})
	return err
}

// ==========================
// Message rendering
// ==========================

// Values are passed as template data, never parsed, so braces in an oracle
// summary come through verbatim.
var (
	emailSubject = template.Must(template.New("subject").Parse(
		"Investment scored: {{.StartupName}}"))
	emailBody = template.Must(template.New("body").Parse(
		"{{.StartupName}} scored {{.OverallScore}}/20 (pass: {{.Pass}}, confidence: {{.Confidence}}).\n\n{{.Summary}}\n\nRequest ID: {{.RequestID}}"))
)

type messageData struct {
	RequestID    string
	StartupName  string
	OverallScore int
	Pass         string
	Confidence   float64
	Summary      string
}

func templateData(n models.ScoringNotification) messageData {
	return messageData{
		RequestID:    n.RequestID,
		StartupName:  n.StartupName,
		OverallScore: n.OverallScore,
		Pass:         yesNo(n.Pass),
		Confidence:   n.Confidence,
		Summary:      n.Summary,
	}
}

func renderTemplate(tmpl *template.Template, n models.ScoringNotification) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, templateData(n)); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

func buildSlackMessage(n models.ScoringNotification) slackMessage {
	pass := "❌ No"
	if n.Pass {
		pass = "✅ Yes"
	}
	return slackMessage{
		Text: "New investment scored: " + n.StartupName,
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: "📊 Investment Scored"}},
			{Type: "section", Fields: []slackText{
				{Type: "mrkdwn", Text: "*Startup:*\n" + n.StartupName},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Score:*\n%d", n.OverallScore)},
				{Type: "mrkdwn", Text: "*Pass:*\n" + pass},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Confidence:*\n%v", n.Confidence)},
			}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: "*Summary:*\n" + n.Summary}},
			{Type: "context", Elements: []slackText{
				{Type: "mrkdwn", Text: "Request ID: `" + n.RequestID + "`"},
			}},
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
