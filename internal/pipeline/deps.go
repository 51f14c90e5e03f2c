// internal/pipeline/deps.go
package pipeline

import (
	"context"
	"time"

	"pitch-scorer/internal/common/logger"
	"pitch-scorer/internal/common/observability"
	"pitch-scorer/internal/store"
	extractdecktext "pitch-scorer/internal/workers/deck/extract-deck-text"
	summarizedeck "pitch-scorer/internal/workers/deck/summarize-deck"
	validateintake "pitch-scorer/internal/workers/intake/validate-intake"
	sendnotification "pitch-scorer/internal/workers/notification/send-notification"
	scoresubmission "pitch-scorer/internal/workers/scoring/score-submission"

	"github.com/google/uuid"
)

// Each stage is a worker with the usual Execute(ctx, *Input) (*Output, error)
// entry point.

type IntakeValidator interface {
	Execute(ctx context.Context, input *validateintake.Input) (*validateintake.Output, error)
}

type DeckExtractor interface {
	Execute(ctx context.Context, input *extractdecktext.Input) (*extractdecktext.Output, error)
}

type DeckSummarizer interface {
	Execute(ctx context.Context, input *summarizedeck.Input) (*summarizedeck.Output, error)
}

type Scorer interface {
	Execute(ctx context.Context, input *scoresubmission.Input) (*scoresubmission.Output, error)
}

type Notifier interface {
	Execute(ctx context.Context, input *sendnotification.Input) (*sendnotification.Output, error)
}

// Deps is everything the orchestrator calls out to. main builds it once.
type Deps struct {
	Store      store.Store
	Validator  IntakeValidator
	Extractor  DeckExtractor
	Summarizer DeckSummarizer
	Scorer     Scorer
	// Notifier and Queue are optional; without both, notification is skipped.
	Notifier      Notifier
	Queue         *TaskQueue
	Observability *observability.Observability
	Logger        logger.Logger

	Now   func() time.Time
	NewID func() string
}

func (d *Deps) withDefaults() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = func() string { return uuid.New().String() }
	}
	if d.Observability == nil {
		d.Observability = observability.NewNoop()
	}
	if d.Logger == nil {
		d.Logger = logger.NewNoOpLogger()
	}
}
