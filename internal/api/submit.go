// internal/api/submit.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	apperrors "pitch-scorer/internal/common/errors"
	"pitch-scorer/internal/pipeline"
)

const multipartMemory = 32 << 20

// errorResponse is the 400 body of a failed submission.
type errorResponse struct {
	Success   bool                       `json:"success"`
	RequestID string                     `json:"request_id,omitempty"`
	Error     string                     `json:"error"`
	Code      string                     `json:"code"`
	Fields    []apperrors.FieldViolation `json:"fields,omitempty"`
}

func (h *Handler) scoreInvestment(w http.ResponseWriter, r *http.Request) {
	sub, err := h.readSubmission(w, r)
	if err != nil {
		h.writeSubmissionError(w, "", err)
		return
	}

	res, err := h.submitter.Submit(r.Context(), sub)
	if err != nil {
		requestID := ""
		var subErr *pipeline.SubmissionError
		if errors.As(err, &subErr) {
			requestID = subErr.RequestID
		}
		h.writeSubmissionError(w, requestID, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) writeSubmissionError(w http.ResponseWriter, requestID string, err error) {
	stdErr, status := h.errors.Resolve(apperrors.SurfaceSubmission, requestID, err)

	msg := stdErr.Message
	if stdErr.Details != "" {
		msg = fmt.Sprintf("%s: %s", stdErr.Message, stdErr.Details)
	}
	writeJSON(w, status, errorResponse{
		Success:   false,
		RequestID: requestID,
		Error:     msg,
		Code:      string(stdErr.Code),
		Fields:    stdErr.Fields,
	})
}

// readSubmission accepts a multipart form, with an optional PDF in the upload
// field, or a JSON object body.
func (h *Handler) readSubmission(w http.ResponseWriter, r *http.Request) (pipeline.Submission, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		return h.readMultipart(w, r)
	case "application/json", "":
		return h.readJSON(w, r)
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return pipeline.Submission{}, apperrors.NewInvalidUploadError(err.Error())
		}
		return pipeline.Submission{Fields: formFields(r.PostForm)}, nil
	default:
		return pipeline.Submission{}, apperrors.NewInvalidUploadError(fmt.Sprintf("unsupported content type %q", mediaType))
	}
}

func (h *Handler) readJSON(w http.ResponseWriter, r *http.Request) (pipeline.Submission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, multipartMemory)

	var fields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || fields == nil {
		msg := "body must be a JSON object"
		if err != nil {
			msg = fmt.Sprintf("%s: %v", msg, err)
		}
		return pipeline.Submission{}, apperrors.NewIntakeValidationError([]apperrors.FieldViolation{
			{Field: "(root)", Message: msg, Code: "INVALID_JSON"},
		})
	}
	return pipeline.Submission{Fields: fields}, nil
}

func (h *Handler) readMultipart(w http.ResponseWriter, r *http.Request) (pipeline.Submission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pipeline.Submission{}, apperrors.NewInvalidUploadError(
				fmt.Sprintf("request exceeds %d bytes", tooLarge.Limit))
		}
		return pipeline.Submission{}, apperrors.NewInvalidUploadError(err.Error())
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	sub := pipeline.Submission{Fields: formFields(r.MultipartForm.Value)}

	file, hdr, err := r.FormFile(h.opts.UploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return sub, nil
	}
	if err != nil {
		return sub, apperrors.NewInvalidUploadError(err.Error())
	}
	defer file.Close()

	contentType := hdr.Header.Get("Content-Type")
	if !h.allowedType(contentType) {
		return sub, apperrors.NewInvalidUploadError(
			fmt.Sprintf("%s must be a PDF, got %q", h.opts.UploadField, contentType))
	}
	if hdr.Size > h.opts.MaxUploadBytes {
		return sub, apperrors.NewInvalidUploadError(
			fmt.Sprintf("%s exceeds %d bytes", h.opts.UploadField, h.opts.MaxUploadBytes))
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return sub, apperrors.NewInvalidUploadError(err.Error())
	}
	if len(data) == 0 {
		return sub, apperrors.NewInvalidUploadError(h.opts.UploadField + " is empty")
	}
	sub.Deck = data
	return sub, nil
}

func (h *Handler) allowedType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, t := range h.opts.AllowedTypes {
		if strings.EqualFold(t, mediaType) {
			return true
		}
	}
	return false
}

// formFields keeps the first value of each form key.
func formFields(values map[string][]string) map[string]interface{} {
	fields := make(map[string]interface{}, len(values))
	for k, v := range values {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	return fields
}
