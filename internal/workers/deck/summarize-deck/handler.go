// internal/workers/deck/summarize-deck/handler.go
package summarizedeck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pitch-scorer/internal/common/llm"
	"pitch-scorer/internal/common/logger"
)

const (
	TaskType = "summarize-deck"
)

var (
	ErrEmptyInput = errors.New("DECK_TEXT_EMPTY")
	ErrOracle     = errors.New("DECK_SUMMARY_FAILED")
)

const summaryPrompt = `You are summarizing text extracted from a pitch deck.

Produce:
- a concise executive summary
- key themes
- important facts
- the purpose of the deck

Only use information present in the deck text. Do NOT add assumptions.

Deck text:
%s
`

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
	summary, err := h.Summarize(ctx, input.Text)
	if err != nil {
		h.logger.Warn("deck summary failed", map[string]interface{}{
			"requestId": input.RequestID,
			"error":     err,
		})
		return nil, err
	}

	h.logger.Info("deck summarized", map[string]interface{}{
		"requestId":     input.RequestID,
		"inputLength":   len(input.Text),
		"summaryLength": len(summary),
	})
	return &Output{Summary: summary}, nil
}

// Summarize asks the oracle for a brief of text.
func (h *Handler) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}
	if h.config.MaxInputChars > 0 {
		if runes := []rune(text); len(runes) > h.config.MaxInputChars {
			text = string(runes[:h.config.MaxInputChars])
		}
	}

	summary, err := h.oracle.Generate(ctx, llm.Request{
		Prompt: fmt.Sprintf(summaryPrompt, text),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOracle, err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("%w: %v", ErrOracle, llm.ErrEmptyResponse)
	}
	return summary, nil
}
