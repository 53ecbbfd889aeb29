package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/elec-mate/elecmate-engine/internal/models"
)

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	docs, err := s.documents.List(r.Context(), models.DocumentFilters{
		TemplateID: r.URL.Query().Get("template_id"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		respondServiceError(w, err, "list documents")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     len(docs),
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "get document")
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "download document")
		return
	}
	writeFile(w, doc.FileName, doc.MimeType, doc.Content)
}
