package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/elec-mate/elecmate-engine/internal/forms"
	"github.com/elec-mate/elecmate-engine/internal/generator"
	"github.com/elec-mate/elecmate-engine/internal/models"
)

type generatorSessionResponse struct {
	ID         string                    `json:"id"`
	TemplateID string                    `json:"template_id"`
	Template   string                    `json:"template"`
	Fields     []generator.FieldView     `json:"fields"`
	Errors     forms.Errors              `json:"errors"`
	Generating bool                      `json:"generating"`
	Completed  bool                      `json:"completed"`
	Notice     *generator.Notice         `json:"notice,omitempty"`
	Document   *models.GeneratedDocument `json:"document,omitempty"`
}

func generatorView(s *generator.Session) generatorSessionResponse {
	return generatorSessionResponse{
		ID:         s.ID(),
		TemplateID: s.Template().ID,
		Template:   s.Template().Name,
		Fields:     s.Fields(),
		Errors:     s.Errors(),
		Generating: s.Generating(),
		Completed:  s.Completed(),
		Notice:     s.Notice(),
		Document:   s.Document(),
	}
}

// LogNotifier writes generator notices to the log
type LogNotifier struct{}

// Notify implements generator.Notifier
func (LogNotifier) Notify(sessionID string, n generator.Notice) {
	level := slog.LevelInfo
	if n.Level == generator.LevelError {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "generator notice", "session_id", sessionID, "level", n.Level, "message", n.Message)
}

type createGeneratorSessionRequest struct {
	TemplateID string `json:"template_id"`
}

func (s *Server) handleCreateGeneratorSession(w http.ResponseWriter, r *http.Request) {
	var req createGeneratorSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TemplateID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "template_id is required")
		return
	}

	session, err := s.generator.Create(r.Context(), req.TemplateID)
	if err != nil {
		respondServiceError(w, err, "create generator session")
		return
	}
	respondJSON(w, http.StatusCreated, generatorView(session))
}

func (s *Server) handleGetGeneratorSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.generator.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "get generator session")
		return
	}
	respondJSON(w, http.StatusOK, generatorView(session))
}

func (s *Server) handleCloseGeneratorSession(w http.ResponseWriter, r *http.Request) {
	if err := s.generator.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "close generator session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "generator session closed",
	})
}

type setFieldRequest struct {
	Value interface{} `json:"value"`
}

func (s *Server) handleSetGeneratorField(w http.ResponseWriter, r *http.Request) {
	var req setFieldRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := s.generator.SetField(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name"), req.Value)
	if err != nil {
		respondServiceError(w, err, "set field")
		return
	}
	respondJSON(w, http.StatusOK, generatorView(session))
}

func (s *Server) handleGenerateDocument(w http.ResponseWriter, r *http.Request) {
	session, _, err := s.generator.Generate(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, generator.ErrValidationFailed) {
		view := generatorView(session)
		message := "form has invalid fields"
		if view.Notice != nil {
			message = view.Notice.Message
		}
		respondAPIError(w, http.StatusUnprocessableEntity, &apiError{
			Code:    "validation_error",
			Message: message,
			Fields:  view.Errors,
		})
		return
	}
	if err != nil {
		respondServiceError(w, err, "generate document")
		return
	}
	respondJSON(w, http.StatusCreated, generatorView(session))
}

func (s *Server) handleDismissNotice(w http.ResponseWriter, r *http.Request) {
	session, err := s.generator.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "dismiss notice")
		return
	}
	session.DismissNotice()
	respondJSON(w, http.StatusOK, generatorView(session))
}
