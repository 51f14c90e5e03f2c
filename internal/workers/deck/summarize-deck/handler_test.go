package summarizedeck

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pitch-scorer/internal/common/llm"
	"pitch-scorer/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type mockOracle struct {
	reply    string
	err      error
	requests []llm.Request
}

func (m *mockOracle) Generate(_ context.Context, req llm.Request) (string, error) {
	m.requests = append(m.requests, req)
	return m.reply, m.err
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Summarize_Success(t *testing.T) {
	oracle := &mockOracle{reply: "  Executive summary: robots.\n"}
	h := NewHandler(LoadConfig(), oracle, logger.NewTestLogger(t))

	summary, err := h.Summarize(context.Background(), "Slide 1: Acme builds robots")
	require.NoError(t, err)
	assert.Equal(t, "Executive summary: robots.", summary)

	require.Len(t, oracle.requests, 1)
	prompt := oracle.requests[0].Prompt
	assert.Contains(t, prompt, "Slide 1: Acme builds robots")
	assert.Contains(t, prompt, "executive summary")
	assert.Contains(t, prompt, "Do NOT add assumptions")
	assert.False(t, oracle.requests[0].JSON)
}

func TestHandler_Summarize_Errors(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		oracle    *mockOracle
		wantErr   error
		wantCalls int
	}{
		{"empty text", "", &mockOracle{reply: "x"}, ErrEmptyInput, 0},
		{"whitespace text", " \n\t ", &mockOracle{reply: "x"}, ErrEmptyInput, 0},
		{"oracle error", "deck", &mockOracle{err: errors.New("quota exceeded")}, ErrOracle, 1},
		{"oracle timeout", "deck", &mockOracle{err: llm.ErrTimeout}, ErrOracle, 1},
		{"empty reply", "deck", &mockOracle{reply: "   "}, ErrOracle, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(LoadConfig(), tt.oracle, logger.NewTestLogger(t))

			_, err := h.Summarize(context.Background(), tt.text)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, tt.oracle.requests, tt.wantCalls)
		})
	}
}

func TestHandler_Summarize_TruncatesLongDecks(t *testing.T) {
	oracle := &mockOracle{reply: "ok"}
	h := NewHandler(&Config{MaxInputChars: 10}, oracle, logger.NewTestLogger(t))

	_, err := h.Summarize(context.Background(), strings.Repeat("a", 10)+strings.Repeat("Z", 50))
	require.NoError(t, err)
	assert.NotContains(t, oracle.requests[0].Prompt, "Z")
}

func TestHandler_Execute(t *testing.T) {
	h := NewHandler(LoadConfig(), &mockOracle{reply: "brief"}, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{RequestID: "r1", Text: "deck"})
	require.NoError(t, err)
	assert.Equal(t, "brief", out.Summary)

	_, err = h.Execute(context.Background(), &Input{RequestID: "r1"})
	assert.ErrorIs(t, err, ErrEmptyInput)
}
