package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/elec-mate/elecmate-engine/internal/catalog"
	"github.com/elec-mate/elecmate-engine/internal/models"
)

// Catalog handlers: search, filter and download of document templates

type templateListResponse struct {
	Templates   []*models.DocumentTemplate `json:"templates"`
	Total       int                        `json:"total"`
	Tab         string                     `json:"tab"`
	EmptyReason catalog.EmptyReason        `json:"empty_reason,omitempty"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	all, err := s.documents.ListTemplates(r.Context())
	if err != nil {
		respondServiceError(w, err, "list templates")
		return
	}

	q := r.URL.Query()
	ukSpecific, _ := strconv.ParseBool(q.Get("uk_specific"))

	view := catalog.NewView(all)
	view.SetQuery(q.Get("q"))
	view.SetFilters(catalog.ParseFilters(q.Get("category"), q.Get("difficulty"), q.Get("regulation"), ukSpecific))
	view.SelectTab(q.Get("tab"))

	visible := view.Visible()
	tab := "all"
	if t := view.Tab(); t != nil {
		tab = string(*t)
	}

	respondJSON(w, http.StatusOK, templateListResponse{
		Templates:   visible,
		Total:       len(visible),
		Tab:         tab,
		EmptyReason: view.EmptyReason(),
	})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.documents.ListCategories(r.Context())
	if err != nil {
		respondServiceError(w, err, "list categories")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
	})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.documents.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "get template")
		return
	}
	respondJSON(w, http.StatusOK, tmpl)
}

func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	name, err := s.documents.DownloadTemplate(r.Context(), chi.URLParam(r, "id"), &buf)
	if err != nil {
		respondServiceError(w, err, "download template")
		return
	}
	writeFile(w, name, "application/pdf", buf.Bytes())
}

func writeFile(w http.ResponseWriter, name, mimeType string, content []byte) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}
