package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/elec-mate/elecmate-engine/internal/models"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	overdue, _ := strconv.ParseBool(r.URL.Query().Get("overdue"))

	status := models.NotificationStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		respondError(w, http.StatusBadRequest, "validation_error", "unknown status: "+string(status))
		return
	}

	list, err := s.notifications.List(r.Context(), models.NotificationFilters{
		Status:  status,
		Overdue: overdue,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		respondServiceError(w, err, "list notifications")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": list,
		"total":         len(list),
	})
}

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var req models.CreateNotificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := s.notifications.Create(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "create notification")
		return
	}
	respondJSON(w, http.StatusCreated, n)
}

func (s *Server) handleGetNotification(w http.ResponseWriter, r *http.Request) {
	n, err := s.notifications.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "get notification")
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) handleUpdateNotification(w http.ResponseWriter, r *http.Request) {
	var patch models.NotificationPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	n, err := s.notifications.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		respondServiceError(w, err, "update notification")
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.notifications.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "delete notification")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "notification deleted",
	})
}
