// Package records reads submissions back out of the record store: the
// newest-first listing and the per-request detail view.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "pitch-scorer/internal/common/errors"
	"pitch-scorer/internal/common/logger"
	"pitch-scorer/internal/common/metrics"
	"pitch-scorer/internal/models"
	"pitch-scorer/internal/store"

	"github.com/sourcegraph/conc/pool"
)

const (
	UnknownStartup  = "Unknown Startup"
	UnknownIndustry = "N/A"

	defaultConcurrency = 8
)

// Skip reasons reported on pitch_listing_skipped_total.
const (
	SkipBadKey      = "bad_key"
	SkipIncomplete  = "incomplete"
	SkipUnparseable = "unparseable"
)

var ErrNotFound = errors.New("RECORD_NOT_FOUND")

// errSkip marks a record the listing leaves out.
type errSkip struct {
	reason string
	err    error
}

func (e *errSkip) Error() string { return fmt.Sprintf("%s: %v", e.reason, e.err) }

type Service struct {
	store       store.Store
	concurrency int
	logger      logger.Logger
}

func NewService(s store.Store, log logger.Logger) *Service {
	return &Service{
		store:       s,
		concurrency: defaultConcurrency,
		logger:      log.WithFields(map[string]interface{}{"component": "records"}),
	}
}

// ListSummaries returns one row per complete record, newest first.
// Incomplete and unparseable records are skipped.
func (s *Service) ListSummaries(ctx context.Context) ([]models.RecordSummary, error) {
	prefixes, err := s.store.List(ctx, models.RecordsRoot)
	if err != nil {
		return nil, apperrors.NewStorageReadError(models.RecordsRoot, err)
	}

	p := pool.NewWithResults[*models.RecordSummary]().
		WithErrors().
		WithContext(ctx).
		WithMaxGoroutines(s.concurrency)

	for _, prefix := range prefixes {
		if !strings.HasSuffix(prefix, store.Delimiter) {
			continue
		}
		key, ok := models.ParseRecordPrefix(prefix)
		if !ok {
			s.skip(prefix, SkipBadKey, nil)
			continue
		}

		p.Go(func(ctx context.Context) (*models.RecordSummary, error) {
			summary, err := s.summarize(ctx, key)
			var skipped *errSkip
			if errors.As(err, &skipped) {
				s.skip(prefix, skipped.reason, skipped.err)
				return nil, nil
			}
			return summary, err
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	summaries := make([]models.RecordSummary, 0, len(results))
	for _, r := range results {
		if r != nil {
			summaries = append(summaries, *r)
		}
	}
	sortNewestFirst(summaries)
	return summaries, nil
}

// GetDetail returns raw_input and score of requestID exactly as stored.
func (s *Service) GetDetail(ctx context.Context, requestID string) (*models.RecordDetail, error) {
	if requestID == "" || strings.Contains(requestID, store.Delimiter) {
		return nil, ErrNotFound
	}

	prefixes, err := s.store.List(ctx, models.RecordsRoot)
	if err != nil {
		return nil, apperrors.NewStorageReadError(models.RecordsRoot, err)
	}

	for _, prefix := range prefixes {
		key, ok := models.ParseRecordPrefix(prefix)
		if !ok || key.RequestID != requestID {
			continue
		}

		input, err := s.readArtifact(ctx, key.Artifact(models.ArtifactRawInput))
		if err != nil {
			return nil, err
		}
		score, err := s.readArtifact(ctx, key.Artifact(models.ArtifactScore))
		if err != nil {
			return nil, err
		}

		return &models.RecordDetail{
			RequestID:   requestID,
			SubmittedAt: key.Timestamp,
			Input:       json.RawMessage(input),
			AIScore:     json.RawMessage(score),
		}, nil
	}
	return nil, ErrNotFound
}

// readArtifact treats a missing artifact as a missing record, since a record
// without both raw_input and score is not complete.
func (s *Service) readArtifact(ctx context.Context, key string) ([]byte, error) {
	data, err := s.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperrors.NewStorageReadError(key, err)
	}
	if !json.Valid(data) {
		return nil, apperrors.NewStorageReadError(key, fmt.Errorf("artifact is not valid JSON"))
	}
	return data, nil
}

// storedInput accepts the intake nested under "intake" or flat at the top.
type storedInput struct {
	Intake *struct {
		StartupName string `json:"startup_name"`
		Industry    string `json:"industry"`
	} `json:"intake"`
	StartupName string `json:"startup_name"`
	Industry    string `json:"industry"`
}

func (s *Service) summarize(ctx context.Context, key models.RecordKey) (*models.RecordSummary, error) {
	scoreData, err := s.readForListing(ctx, key.Artifact(models.ArtifactScore))
	if err != nil {
		return nil, err
	}
	inputData, err := s.readForListing(ctx, key.Artifact(models.ArtifactRawInput))
	if err != nil {
		return nil, err
	}

	artifact, err := models.DecodeScoreArtifact(scoreData)
	if err != nil {
		return nil, &errSkip{reason: SkipUnparseable, err: err}
	}

	var input storedInput
	if err := json.Unmarshal(inputData, &input); err != nil {
		return nil, &errSkip{reason: SkipUnparseable, err: err}
	}

	name, industry := input.StartupName, input.Industry
	if input.Intake != nil {
		name, industry = input.Intake.StartupName, input.Intake.Industry
	}

	return &models.RecordSummary{
		RequestID:    key.RequestID,
		StartupName:  orDefault(name, UnknownStartup),
		Industry:     orDefault(industry, UnknownIndustry),
		SubmittedAt:  key.Timestamp,
		OverallScore: artifact.Score.OverallScore,
		Pass:         artifact.Score.Pass,
	}, nil
}

func (s *Service) readForListing(ctx context.Context, key string) ([]byte, error) {
	data, err := s.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &errSkip{reason: SkipIncomplete, err: err}
	}
	if err != nil {
		return nil, apperrors.NewStorageReadError(key, err)
	}
	return data, nil
}

func (s *Service) skip(prefix, reason string, err error) {
	metrics.ListingSkipped.WithLabelValues(reason).Inc()
	fields := map[string]interface{}{
		"prefix": prefix,
		"reason": reason,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	s.logger.Warn("skipping record", fields)
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// sortNewestFirst orders by submitted_at descending. Timestamps that do not
// parse fall back to string order.
func sortNewestFirst(rows []models.RecordSummary) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		ta, errA := time.Parse(time.RFC3339Nano, a.SubmittedAt)
		tb, errB := time.Parse(time.RFC3339Nano, b.SubmittedAt)
		if errA == nil && errB == nil && !ta.Equal(tb) {
			return ta.After(tb)
		}
		if a.SubmittedAt != b.SubmittedAt {
			return a.SubmittedAt > b.SubmittedAt
		}
		return a.RequestID < b.RequestID
	})
}
