// internal/api/investments.go
package api

import (
	"errors"
	"net/http"

	apperrors "pitch-scorer/internal/common/errors"
	"pitch-scorer/internal/models"
	"pitch-scorer/internal/records"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listInvestments(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.records.ListSummaries(r.Context())
	if err != nil {
		_, status := h.errors.Resolve(apperrors.SurfaceRead, "", err)
		writeJSON(w, status, map[string]string{"error": "Failed to list investments"})
		return
	}
	if summaries == nil {
		summaries = []models.RecordSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) getInvestment(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestId")

	detail, err := h.records.GetDetail(r.Context(), requestID)
	if errors.Is(err, records.ErrNotFound) {
		err = apperrors.NewRecordNotFoundError(requestID)
	}
	if err != nil {
		stdErr, status := h.errors.Resolve(apperrors.SurfaceRead, requestID, err)
		msg := "Failed to load deal"
		if stdErr.Code == apperrors.ErrCodeRecordNotFound {
			msg = stdErr.Message
		}
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
