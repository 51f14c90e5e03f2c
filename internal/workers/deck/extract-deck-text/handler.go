// internal/workers/deck/extract-deck-text/handler.go
package extractdecktext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"pitch-scorer/internal/common/logger"

	"github.com/ledongthuc/pdf"
)

const (
	TaskType = "extract-deck-text"
)

var (
	ErrExtraction = errors.New("DECK_EXTRACTION_FAILED")
)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	text, pages, err := h.extract(input.PDF)
	if err != nil {
		h.logger.Warn("deck extraction failed", map[string]interface{}{
			"requestId": input.RequestID,
			"bytes":     len(input.PDF),
			"error":     err,
		})
		return nil, err
	}

	h.logger.Info("deck text extracted", map[string]interface{}{
		"requestId": input.RequestID,
		"pages":     pages,
		"length":    utf8.RuneCountInString(text),
	})

	return &Output{
		Text:      text,
		Length:    utf8.RuneCountInString(text),
		PageCount: pages,
	}, nil
}

// Extract returns the plain text of a PDF. Any parser failure, including a
// panic inside the parser, comes back as ErrExtraction.
func (h *Handler) Extract(data []byte) (string, error) {
	text, _, err := h.extract(data)
	return text, err
}

// ExtractSafe is Extract with failures mapped to nil.
func (h *Handler) ExtractSafe(data []byte) *string {
	text, err := h.Extract(data)
	if err != nil {
		h.logger.Warn("deck extraction skipped", map[string]interface{}{
			"error": err,
		})
		return nil
	}
	return &text
}

// extract reads from an in-memory reader, so the parser holds no handle
// that outlives the call on any exit path.
func (h *Handler) extract(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = fmt.Errorf("%w: parser panic: %v", ErrExtraction, r)
		}
	}()

	if len(data) == 0 {
		return "", 0, fmt.Errorf("%w: empty document", ErrExtraction)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	total := reader.NumPage()
	if h.config.MaxPages > 0 && total > h.config.MaxPages {
		total = h.config.MaxPages
	}

	var sb strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			return "", 0, fmt.Errorf("%w: page %d: %v", ErrExtraction, i, err)
		}
		if sb.Len() > 0 && pageText != "" {
			sb.WriteString("\n")
		}
		sb.WriteString(pageText)
	}

	return strings.TrimSpace(sb.String()), total, nil
}
