// internal/workers/intake/validate-intake/handler.go
package validateintake

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	apperrors "pitch-scorer/internal/common/errors"
	"pitch-scorer/internal/common/logger"
	"pitch-scorer/internal/common/validation"
	"pitch-scorer/internal/models"
)

const (
	TaskType = "validate-intake"
)

var (
	ErrIntakeInvalid = errors.New("INTAKE_VALIDATION_FAILED")
)

// ValidationError lists every rejected field.
type ValidationError struct {
	Violations []apperrors.FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return fmt.Sprintf("%s: %s", ErrIntakeInvalid, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrIntakeInvalid }

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
	intake, err := h.Validate(input.Fields)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			h.logger.Info("intake rejected", map[string]interface{}{
				"requestId":  input.RequestID,
				"violations": len(verr.Violations),
			})
		}
		return nil, err
	}
	return &Output{Intake: intake}, nil
}

// Validate checks raw form fields and returns the canonical intake. Every
// field must be present as a string. Empty strings are allowed except where
// the value has a format (email, url). Values are trimmed and otherwise kept
// as sent.
func (h *Handler) Validate(raw map[string]interface{}) (models.Intake, error) {
	var violations []apperrors.FieldViolation
	flagged := make(map[string]bool)
	values := make(map[string]string, len(models.IntakeFields))

	known := make(map[string]bool, len(models.IntakeFields))
	for _, name := range models.IntakeFields {
		known[name] = true

		v, ok := raw[name]
		if !ok || v == nil {
			flagged[name] = true
			violations = append(violations, apperrors.FieldViolation{
				Field:   name,
				Message: fmt.Sprintf("%s is a required field", name),
				Code:    "REQUIRED",
			})
			continue
		}
		s, ok := v.(string)
		if !ok {
			flagged[name] = true
			violations = append(violations, apperrors.FieldViolation{
				Field:   name,
				Message: fmt.Sprintf("%s must be a string", name),
				Code:    "INVALID_TYPE",
			})
			continue
		}
		values[name] = strings.TrimSpace(s)
	}

	var unknown []string
	for name := range raw {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	if len(unknown) > 0 {
		if h.config.RejectUnknownFields {
			for _, name := range unknown {
				violations = append(violations, apperrors.FieldViolation{
					Field:   name,
					Message: fmt.Sprintf("%s is not a recognised field", name),
					Code:    "UNKNOWN_FIELD",
				})
			}
		} else {
			h.logger.Debug("dropping unknown intake fields", map[string]interface{}{
				"fields": unknown,
			})
		}
	}

	intake := buildIntake(values)

	result := validation.ValidateStruct(intake)
	for _, e := range result.Errors {
		if flagged[e.Field] {
			continue
		}
		violations = append(violations, apperrors.FieldViolation{
			Field:   e.Field,
			Message: e.Message,
			Code:    e.Code,
		})
	}

	if len(violations) > 0 {
		sortViolations(violations)
		return models.Intake{}, &ValidationError{Violations: violations}
	}
	return intake, nil
}

func buildIntake(v map[string]string) models.Intake {
	return models.Intake{
		StartupName:    v["startup_name"],
		FounderEmail:   v["founder_email"],
		Industry:       v["industry"],
		Stage:          v["stage"],
		Location:       v["location"],
		OneLiner:       v["one_liner"],
		Problem:        v["problem"],
		Solution:       v["solution"],
		Traction:       v["traction"],
		Revenue:        v["revenue"],
		TeamBackground: v["team_background"],
		DeckURL:        v["deck_url"],
	}
}

// sortViolations orders by form position, unknown fields last.
func sortViolations(vs []apperrors.FieldViolation) {
	pos := make(map[string]int, len(models.IntakeFields))
	for i, name := range models.IntakeFields {
		pos[name] = i
	}
	rank := func(field string) int {
		if p, ok := pos[field]; ok {
			return p
		}
		return len(models.IntakeFields)
	}
	sort.SliceStable(vs, func(i, j int) bool {
		ri, rj := rank(vs[i].Field), rank(vs[j].Field)
		if ri != rj {
			return ri < rj
		}
		return vs[i].Field < vs[j].Field
	})
}
