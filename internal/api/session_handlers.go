package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/elec-mate/elecmate-engine/internal/assessment"
	"github.com/elec-mate/elecmate-engine/internal/models"
)

// Exam handlers

type examResponse struct {
	models.ExamDefinition
	DurationSeconds int `json:"durationSeconds"`
}

func (s *Server) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams := s.banks.ListExams()
	out := make([]examResponse, 0, len(exams))
	for _, e := range exams {
		out = append(out, examResponse{ExamDefinition: e, DurationSeconds: e.DurationSeconds()})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"exams": out,
		"total": len(out),
	})
}

func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examId")
	if _, err := s.banks.Bank(examID); err != nil {
		respondServiceError(w, err, "list attempts")
		return
	}

	limit, _ := pagination(r)
	attempts, err := s.repo.ListAttempts(r.Context(), examID, limit)
	if err != nil {
		respondServiceError(w, err, "list attempts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"attempts": attempts,
		"total":    len(attempts),
	})
}

func (s *Server) handleStartExam(w http.ResponseWriter, r *http.Request) {
	session, err := s.exams.Start(chi.URLParam(r, "examId"))
	if err != nil {
		respondServiceError(w, err, "start exam")
		return
	}
	respondJSON(w, http.StatusCreated, session.Snapshot())
}

// Exam session handlers

// withExamSession resolves {id} and runs action against it, answering with
// the resulting snapshot
func (s *Server) withExamSession(op string, action func(*assessment.Session, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.exams.Get(chi.URLParam(r, "id"))
		if err != nil {
			respondServiceError(w, err, op)
			return
		}
		if action != nil {
			if err := action(session, r); err != nil {
				respondServiceError(w, err, op)
				return
			}
		}
		respondJSON(w, http.StatusOK, session.Snapshot())
	}
}

func (s *Server) handleGetExamSession(w http.ResponseWriter, r *http.Request) {
	s.withExamSession("get exam session", nil)(w, r)
}

func (s *Server) handleDisposeExamSession(w http.ResponseWriter, r *http.Request) {
	if err := s.exams.Dispose(chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "dispose exam session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "exam session disposed",
	})
}

type answerRequest struct {
	Option *int `json:"option"`
}

func (s *Server) handleSelectAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Option == nil {
		respondError(w, http.StatusBadRequest, "validation_error", "option is required")
		return
	}
	s.withExamSession("select answer", func(es *assessment.Session, _ *http.Request) error {
		return es.SelectAnswer(*req.Option)
	})(w, r)
}

func (s *Server) handleNextQuestion(w http.ResponseWriter, r *http.Request) {
	s.withExamSession("next question", func(es *assessment.Session, _ *http.Request) error {
		return es.Next()
	})(w, r)
}

func (s *Server) handlePreviousQuestion(w http.ResponseWriter, r *http.Request) {
	s.withExamSession("previous question", func(es *assessment.Session, _ *http.Request) error {
		return es.Previous()
	})(w, r)
}

type goToRequest struct {
	Index *int `json:"index"`
}

func (s *Server) handleGoTo(w http.ResponseWriter, r *http.Request) {
	var req goToRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Index == nil {
		respondError(w, http.StatusBadRequest, "validation_error", "index is required")
		return
	}
	s.withExamSession("go to question", func(es *assessment.Session, _ *http.Request) error {
		return es.GoTo(*req.Index)
	})(w, r)
}

func (s *Server) handleToggleFlag(w http.ResponseWriter, r *http.Request) {
	s.withExamSession("toggle flag", func(es *assessment.Session, _ *http.Request) error {
		return es.ToggleFlag()
	})(w, r)
}

func (s *Server) handleNextFlagged(w http.ResponseWriter, r *http.Request) {
	s.withExamSession("next flagged", func(es *assessment.Session, _ *http.Request) error {
		return es.NextFlagged()
	})(w, r)
}

func (s *Server) handleSubmitExam(w http.ResponseWriter, r *http.Request) {
	s.withExamSession("submit exam", func(es *assessment.Session, _ *http.Request) error {
		_, err := es.Submit()
		return err
	})(w, r)
}

func (s *Server) handleRetakeExam(w http.ResponseWriter, r *http.Request) {
	session, err := s.exams.Retake(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "retake exam")
		return
	}
	respondJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleExamBreakdown(w http.ResponseWriter, r *http.Request) {
	session, err := s.exams.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "exam breakdown")
		return
	}
	breakdown, err := session.Breakdown()
	if err != nil {
		respondServiceError(w, err, "exam breakdown")
		return
	}
	respondJSON(w, http.StatusOK, breakdown)
}

// Review handlers

// handleReview enters review mode if needed and applies the body's filter
// when one is given. An empty body only enters review.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filter *string `json:"filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	var filter *assessment.ReviewFilter
	if req.Filter != nil {
		f, err := assessment.ParseReviewFilter(*req.Filter)
		if err != nil {
			respondServiceError(w, err, "review exam")
			return
		}
		filter = &f
	}

	s.withExamSession("review exam", func(es *assessment.Session, _ *http.Request) error {
		if !es.Reviewing() {
			if err := es.EnterReview(); err != nil {
				return err
			}
		}
		if filter == nil {
			return nil
		}
		return es.SetFilter(*filter)
	})(w, r)
}

type reviewFilterRequest struct {
	Filter string `json:"filter"`
}

// handleSelectReviewFilter toggles a filter: choosing the active one restores "all"
func (s *Server) handleSelectReviewFilter(w http.ResponseWriter, r *http.Request) {
	var req reviewFilterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := assessment.ParseReviewFilter(req.Filter)
	if err != nil {
		respondServiceError(w, err, "select review filter")
		return
	}
	s.withExamSession("select review filter", func(es *assessment.Session, _ *http.Request) error {
		_, err := es.SelectFilter(f)
		return err
	})(w, r)
}

func (s *Server) handleExitReview(w http.ResponseWriter, r *http.Request) {
	s.withExamSession("exit review", func(es *assessment.Session, _ *http.Request) error {
		es.ExitReview()
		return nil
	})(w, r)
}
