// Package api exposes the pipeline and the record readers over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	apperrors "pitch-scorer/internal/common/errors"
	"pitch-scorer/internal/common/logger"
	"pitch-scorer/internal/models"
	"pitch-scorer/internal/pipeline"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Submitter interface {
	Submit(ctx context.Context, sub pipeline.Submission) (*pipeline.Result, error)
}

type RecordReader interface {
	ListSummaries(ctx context.Context) ([]models.RecordSummary, error)
	GetDetail(ctx context.Context, requestID string) (*models.RecordDetail, error)
}

type Options struct {
	UploadField        string
	MaxUploadBytes     int64
	AllowedTypes       []string
	CORSAllowedOrigins []string
	// Ready backs /ready. Nil means always ready.
	Ready func(ctx context.Context) error
}

type Handler struct {
	submitter Submitter
	records   RecordReader
	errors    *apperrors.ErrorHandler
	opts      Options
	logger    logger.Logger
}

func NewHandler(submitter Submitter, records RecordReader, opts Options, log logger.Logger) *Handler {
	if opts.UploadField == "" {
		opts.UploadField = "pitchDeck"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 25 << 20
	}
	if len(opts.AllowedTypes) == 0 {
		opts.AllowedTypes = []string{"application/pdf"}
	}
	log = log.WithFields(map[string]interface{}{"component": "api"})
	return &Handler{
		submitter: submitter,
		records:   records,
		errors:    apperrors.NewErrorHandler(log),
		opts:      opts,
		logger:    log,
	}
}

// Router mounts every route with the shared middleware stack.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(accessLog(h.logger))
	if len(h.opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.opts.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", h.health)
	r.Get("/ready", h.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/score-investment", h.scoreInvestment)
	r.Get("/investments", h.listInvestments)
	r.Get("/investments/{requestId}", h.getInvestment)

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if h.opts.Ready != nil {
		if err := h.opts.Ready(r.Context()); err != nil {
			h.logger.Warn("readiness check failed", map[string]interface{}{"error": err})
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
