package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/elec-mate/elecmate-engine/internal/assessment"
	"github.com/elec-mate/elecmate-engine/internal/documents"
	"github.com/elec-mate/elecmate-engine/internal/generator"
	"github.com/elec-mate/elecmate-engine/internal/notifications"
	"github.com/elec-mate/elecmate-engine/internal/questions"
	"github.com/elec-mate/elecmate-engine/internal/services"
	"github.com/elec-mate/elecmate-engine/internal/storage"
	"github.com/elec-mate/elecmate-engine/internal/templates"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondAPIError(w, status, &apiError{Code: code, Message: message})
}

func respondAPIError(w http.ResponseWriter, status int, e *apiError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(apiResponse{Success: false, Error: e}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondServiceError maps a domain error onto the envelope. op names the
// action for logs and the generic 500 message.
func respondServiceError(w http.ResponseWriter, err error, op string) {
	var validation *notifications.ValidationError
	var generation *documents.GenerationError
	var download *documents.DownloadError

	switch {
	case errors.As(err, &validation):
		respondAPIError(w, http.StatusBadRequest, &apiError{
			Code:    "validation_error",
			Message: "notification has invalid fields",
			Fields:  validation.Fields,
		})
	case errors.Is(err, templates.ErrTemplateNotFound):
		respondError(w, http.StatusNotFound, "template_not_found", "template not found")
	case errors.Is(err, questions.ErrBankNotFound):
		respondError(w, http.StatusNotFound, "exam_not_found", "exam not found")
	case errors.Is(err, generator.ErrSessionNotFound), errors.Is(err, generator.ErrDraftNotFound),
		errors.Is(err, assessment.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", "session not found")
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "record not found")
	case errors.Is(err, generator.ErrUnknownField):
		respondError(w, http.StatusBadRequest, "unknown_field", err.Error())
	case errors.Is(err, assessment.ErrInvalidOption), errors.Is(err, assessment.ErrInvalidIndex),
		errors.Is(err, assessment.ErrUnknownFilter):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, generator.ErrGenerationInProgress):
		respondError(w, http.StatusConflict, "generation_in_progress", err.Error())
	case errors.Is(err, generator.ErrSessionClosed), errors.Is(err, assessment.ErrDisposed):
		respondError(w, http.StatusGone, "session_closed", err.Error())
	case errors.Is(err, assessment.ErrNotStarted), errors.Is(err, assessment.ErrSessionCompleted),
		errors.Is(err, assessment.ErrNotCompleted), errors.Is(err, assessment.ErrAlreadyStarted),
		errors.Is(err, assessment.ErrNotReviewing), errors.Is(err, assessment.ErrNoQuestions):
		respondError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.As(err, &generation):
		slog.Error("document generation failed", "template_id", generation.TemplateID, "error", generation.Err)
		respondError(w, http.StatusBadGateway, "generation_failed", "Failed to generate document. Please try again.")
	case errors.As(err, &download):
		slog.Error("template download failed", "template_id", download.TemplateID, "error", download.Err)
		respondError(w, http.StatusBadGateway, "download_failed", "failed to render template")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondError(w, http.StatusServiceUnavailable, "timeout", "request timed out")
	default:
		slog.Error("request failed", "op", op, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+op)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// pagination reads limit and offset, defaulting to 50 and 0
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}
	return limit, offset
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results := s.health.HealthCheckAll(r.Context())
	checks := make(map[string]string, len(results))
	for name, err := range results {
		if err != nil {
			slog.Warn("dependency not ready", "service", name, "error", err)
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	if !services.Healthy(results) {
		respondAPIError(w, http.StatusServiceUnavailable, &apiError{
			Code:    "not_ready",
			Message: "service not ready",
			Fields:  checks,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": checks,
	})
}
