// internal/pipeline/orchestrator.go
package pipeline

import (
	"context"
	"errors"
	"fmt"

	apperrors "pitch-scorer/internal/common/errors"
	"pitch-scorer/internal/common/llm"
	"pitch-scorer/internal/common/logger"
	"pitch-scorer/internal/common/metrics"
	"pitch-scorer/internal/models"
	"pitch-scorer/internal/store"
	extractdecktext "pitch-scorer/internal/workers/deck/extract-deck-text"
	summarizedeck "pitch-scorer/internal/workers/deck/summarize-deck"
	validateintake "pitch-scorer/internal/workers/intake/validate-intake"
	sendnotification "pitch-scorer/internal/workers/notification/send-notification"
	scoresubmission "pitch-scorer/internal/workers/scoring/score-submission"

	"go.opentelemetry.io/otel/attribute"
)

// Submission is one incoming pitch. Deck is nil when no PDF was attached.
type Submission struct {
	Fields map[string]interface{}
	Deck   []byte
}

// Result is the success body of a submission.
type Result struct {
	Success     bool                `json:"success"`
	RequestID   string              `json:"request_id"`
	SubmittedAt string              `json:"submitted_at"`
	BlobPaths   models.BlobPaths    `json:"blob_paths"`
	Score       *models.ScoreOutput `json:"score"`
}

// SubmissionError is a fatal pipeline failure. It always names the request.
type SubmissionError struct {
	RequestID string
	State     State
	Err       *apperrors.StandardError
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission %s failed after %s: %v", e.RequestID, e.State, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

type Orchestrator struct {
	deps Deps
}

func NewOrchestrator(deps Deps) *Orchestrator {
	deps.withDefaults()
	return &Orchestrator{deps: deps}
}

// run tracks one submission through the state machine.
type run struct {
	key    models.RecordKey
	state  State
	paths  models.BlobPaths
	logger logger.Logger
}

func (r *run) advance(s State) {
	r.state = s
	r.logger.Debug("state changed", map[string]interface{}{"state": string(s)})
}

func (r *run) fail(err *apperrors.StandardError) *SubmissionError {
	failed := r.state
	r.state = StateError
	err.WithMetadata("requestId", r.key.RequestID)
	r.logger.Error("submission failed", map[string]interface{}{
		"state":     string(failed),
		"errorCode": string(err.Code),
		"details":   err.Details,
	})
	return &SubmissionError{RequestID: r.key.RequestID, State: failed, Err: err}
}

// degrade logs a best-effort stage failure. The submission carries on.
func (r *run) degrade(msg string, err *apperrors.StandardError) {
	err.WithMetadata("requestId", r.key.RequestID)
	r.logger.Warn(msg, map[string]interface{}{
		"state":     string(r.state),
		"errorCode": string(err.Code),
		"details":   err.Details,
	})
}

// Submit runs the pipeline for sub. Deck steps are best-effort; every other
// failure is returned as a *SubmissionError.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission) (*Result, error) {
	key := models.NewRecordKey(o.deps.Now(), o.deps.NewID())
	r := &run{
		key:   key,
		state: StateReceived,
		logger: o.deps.Logger.WithFields(map[string]interface{}{
			"requestId": key.RequestID,
		}),
	}
	r.logger.Info("submission received", map[string]interface{}{
		"hasDeck": sub.Deck != nil,
	})

	intake, err := o.validate(ctx, key.RequestID, sub.Fields)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, r.fail(err)
	}

	inputKey := key.Artifact(models.ArtifactRawInput)
	rawInput := models.RawInput{RequestID: key.RequestID, ReceivedAt: key.Timestamp, Intake: intake}
	if err := o.traced(ctx, stagePersistInput, func(ctx context.Context) error {
		return store.PutJSON(ctx, o.deps.Store, inputKey, rawInput)
	}); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("storage_error").Inc()
		return nil, r.fail(apperrors.NewStorageWriteError(inputKey, err))
	}
	r.paths.Input = inputKey
	r.advance(StateInputPersisted)

	var deckSummary *string
	if sub.Deck != nil {
		if summary := o.deckChain(ctx, r)(&sub.Deck); summary != nil {
			deckSummary = &summary.text
		}
	}

	score, err := o.score(ctx, key.RequestID, intake, deckSummary)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("scoring_failed").Inc()
		return nil, r.fail(err)
	}

	scoreKey := key.Artifact(models.ArtifactScore)
	artifact := models.NewScoreArtifact(key.RequestID, models.FormatTimestamp(o.deps.Now()), score)
	if err := o.traced(ctx, stagePersistScore, func(ctx context.Context) error {
		return store.PutJSON(ctx, o.deps.Store, scoreKey, artifact)
	}); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("storage_error").Inc()
		return nil, r.fail(apperrors.NewStorageWriteError(scoreKey, err))
	}
	r.paths.Output = scoreKey
	r.advance(StateScored)

	metrics.SubmissionsTotal.WithLabelValues("scored").Inc()
	r.logger.Info("submission scored", map[string]interface{}{
		"overallScore": score.OverallScore,
		"pass":         score.Pass,
		"hasSummary":   deckSummary != nil,
	})

	o.notify(r, intake, score)

	return &Result{
		Success:     true,
		RequestID:   key.RequestID,
		SubmittedAt: key.Timestamp,
		BlobPaths:   r.paths,
		Score:       score,
	}, nil
}

func (o *Orchestrator) validate(ctx context.Context, requestID string, fields map[string]interface{}) (models.Intake, *apperrors.StandardError) {
	var intake models.Intake
	err := o.traced(ctx, stageValidate, func(ctx context.Context) error {
		out, err := o.deps.Validator.Execute(ctx, &validateintake.Input{RequestID: requestID, Fields: fields})
		if err != nil {
			return err
		}
		intake = out.Intake
		return nil
	})
	if err == nil {
		return intake, nil
	}

	var verr *validateintake.ValidationError
	if errors.As(err, &verr) {
		return intake, apperrors.NewIntakeValidationError(verr.Violations)
	}
	return intake, apperrors.NewIntakeValidationError([]apperrors.FieldViolation{
		{Field: "(root)", Message: err.Error(), Code: "INVALID"},
	})
}

func (o *Orchestrator) score(ctx context.Context, requestID string, intake models.Intake, deckSummary *string) (*models.ScoreOutput, *apperrors.StandardError) {
	var score *models.ScoreOutput
	err := o.traced(ctx, stageScore, func(ctx context.Context) error {
		out, err := o.deps.Scorer.Execute(ctx, &scoresubmission.Input{
			RequestID:   requestID,
			Intake:      intake,
			DeckSummary: deckSummary,
		})
		if err != nil {
			return err
		}
		score = out.Score
		return nil
	})
	switch {
	case err == nil:
		return score, nil
	case errors.Is(err, llm.ErrTimeout):
		return nil, apperrors.NewLLMTimeoutError(stageScore)
	default:
		return nil, apperrors.NewScoringError(err)
	}
}

// ==========================
// Deck stages
// ==========================

type uploadedDeck struct {
	pdf []byte
}

type extractedDeck struct {
	text string
}

type summarizedDeck struct {
	text string
}

// deckChain composes upload, extract and summarize. Any failure yields nil
// and the submission carries on without a summary. A stage only runs after
// the artifact it depends on was written.
func (o *Orchestrator) deckChain(ctx context.Context, r *run) Stage[[]byte, summarizedDeck] {
	upload := Stage[[]byte, uploadedDeck](func(pdf *[]byte) *uploadedDeck {
		deckKey := r.key.Artifact(models.ArtifactRawDeck)
		if err := o.traced(ctx, stageUploadDeck, func(ctx context.Context) error {
			return o.deps.Store.Put(ctx, deckKey, *pdf, store.ContentTypePDF)
		}); err != nil {
			r.degrade("deck upload failed, scoring without deck", apperrors.NewStorageWriteError(deckKey, err))
			return nil
		}
		r.paths.Deck = deckKey
		r.advance(StateDeckUploaded)
		return &uploadedDeck{pdf: *pdf}
	})

	extract := Stage[uploadedDeck, extractedDeck](func(d *uploadedDeck) *extractedDeck {
		textKey := r.key.Artifact(models.ArtifactDeckText)
		var text string
		if err := o.traced(ctx, stageExtractDeck, func(ctx context.Context) error {
			out, err := o.deps.Extractor.Execute(ctx, &extractdecktext.Input{RequestID: r.key.RequestID, PDF: d.pdf})
			if err != nil {
				return apperrors.NewDeckExtractionError(err)
			}
			text = out.Text
			if err := store.PutJSON(ctx, o.deps.Store, textKey, models.DeckText{
				ExtractedAt: models.FormatTimestamp(o.deps.Now()),
				Length:      out.Length,
				Text:        out.Text,
			}); err != nil {
				return apperrors.NewStorageWriteError(textKey, err)
			}
			return nil
		}); err != nil {
			r.degrade("deck text extraction failed", asStandard(err, apperrors.NewDeckExtractionError))
			return nil
		}
		r.paths.DeckText = textKey
		r.advance(StateDeckExtracted)
		return &extractedDeck{text: text}
	})

	summarize := Stage[extractedDeck, summarizedDeck](func(d *extractedDeck) *summarizedDeck {
		summaryKey := r.key.Artifact(models.ArtifactDeckSummary)
		var summary string
		if err := o.traced(ctx, stageSummarizeDeck, func(ctx context.Context) error {
			out, err := o.deps.Summarizer.Execute(ctx, &summarizedeck.Input{RequestID: r.key.RequestID, Text: d.text})
			if err != nil {
				return apperrors.NewDeckSummaryError(err)
			}
			summary = out.Summary
			if err := store.PutJSON(ctx, o.deps.Store, summaryKey, models.DeckSummary{
				Summary:   summary,
				CreatedAt: models.FormatTimestamp(o.deps.Now()),
			}); err != nil {
				return apperrors.NewStorageWriteError(summaryKey, err)
			}
			return nil
		}); err != nil {
			r.degrade("deck summary failed", asStandard(err, apperrors.NewDeckSummaryError))
			return nil
		}
		r.paths.DeckSummary = summaryKey
		r.advance(StateDeckSummarized)
		return &summarizedDeck{text: summary}
	})

	return Then(Then(upload, extract), summarize)
}

func asStandard(err error, wrap func(error) *apperrors.StandardError) *apperrors.StandardError {
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		return stdErr
	}
	return wrap(err)
}

// ==========================
// Notification
// ==========================

func (o *Orchestrator) notify(r *run, intake models.Intake, score *models.ScoreOutput) {
	r.advance(StateResponded)
	if o.deps.Queue == nil || o.deps.Notifier == nil {
		return
	}

	input := &sendnotification.Input{Notification: models.ScoringNotification{
		RequestID:    r.key.RequestID,
		StartupName:  intake.StartupName,
		OverallScore: score.OverallScore,
		Pass:         score.Pass,
		Confidence:   score.Confidence,
		Summary:      score.Summary,
	}}

	log := r.logger
	queued := o.deps.Queue.Enqueue(Task{
		Name:      stageNotify,
		RequestID: r.key.RequestID,
		Run: func(ctx context.Context) error {
			return o.traced(ctx, stageNotify, func(ctx context.Context) error {
				out, err := o.deps.Notifier.Execute(ctx, input)
				if err != nil {
					return err
				}
				log.Info("notification finished", map[string]interface{}{
					"state":     string(StateNotified),
					"delivered": out.Delivered(),
				})
				return nil
			})
		},
	})
	if !queued {
		log.Warn("notification not queued", nil)
	}
}

// traced runs fn inside a stage span and records its duration.
func (o *Orchestrator) traced(ctx context.Context, stage string, fn func(context.Context) error) error {
	ctx, span := o.deps.Observability.StartStage(ctx, stage, attribute.String("stage", stage))
	err := fn(ctx)
	span.End(ctx, err)
	return err
}
