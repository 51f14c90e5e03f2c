// Package llm is the generative oracle used by the deck summarizer and the
// scorer. Callers depend on Oracle; GeminiClient is the production
// implementation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pitch-scorer/internal/common/logger"

	"google.golang.org/genai"
)

var (
	ErrTimeout       = errors.New("LLM_TIMEOUT")
	ErrEmptyResponse = errors.New("empty response")
)

// Request is one text-in/text-out call.
type Request struct {
	// System is sent as the system instruction when set.
	System string
	Prompt string
	// JSON asks the model for an application/json reply.
	JSON bool
}

type Oracle interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

type GeminiClient struct {
	client *genai.Client
	config Config
	logger logger.Logger
}

func NewGeminiClient(ctx context.Context, cfg Config, log logger.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"model": cfg.Model}),
	}, nil
}

// Generate returns the trimmed text of the first candidate. An empty reply
// is not an error here; callers decide what empty means.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.config.Temperature),
	}
	if req.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		genCfg.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, genai.Text(req.Prompt), genCfg)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	c.logger.Debug("oracle call completed", map[string]interface{}{
		"durationMs":  time.Since(start).Milliseconds(),
		"json":        req.JSON,
		"replyLength": len(text),
	})
	return text, nil
}
