package documents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elec-mate/elecmate-engine/internal/catalog"
	"github.com/elec-mate/elecmate-engine/internal/forms"
	"github.com/elec-mate/elecmate-engine/internal/metrics"
	"github.com/elec-mate/elecmate-engine/internal/models"
)

const pdfMimeType = "application/pdf"

// TemplateSource is the loaded template catalog
type TemplateSource interface {
	Get(id string) (*models.DocumentTemplate, error)
	List() []*models.DocumentTemplate
}

// Store persists generated documents
type Store interface {
	CreateDocument(ctx context.Context, doc *models.GeneratedDocument) error
	GetDocument(ctx context.Context, id string) (*models.GeneratedDocument, error)
	ListDocuments(ctx context.Context, filters models.DocumentFilters) ([]*models.GeneratedDocument, error)
}

// Service renders documents from templates and keeps the results
type Service struct {
	templates TemplateSource
	store     Store
	metrics   *metrics.Collector
	now       func() time.Time
}

// NewService creates a document service. m may be nil.
func NewService(templates TemplateSource, store Store, m *metrics.Collector) *Service {
	return &Service{templates: templates, store: store, metrics: m, now: time.Now}
}

// ListTemplates returns the catalog in load order
func (s *Service) ListTemplates(ctx context.Context) ([]*models.DocumentTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ServiceError{Op: "list templates", Err: err}
	}
	return s.templates.List(), nil
}

// ListCategories returns per-category counts with the "all" entry first
func (s *Service) ListCategories(ctx context.Context) ([]models.CategorySummary, error) {
	templates, err := s.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Summaries(templates), nil
}

// GetTemplate looks up one template
func (s *Service) GetTemplate(ctx context.Context, id string) (*models.DocumentTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ServiceError{Op: "get template", Err: err}
	}
	return s.templates.Get(id)
}

// GenerateDocument renders data into a PDF and stores it. The form is not
// re-validated here; callers validate before generating.
func (s *Service) GenerateDocument(ctx context.Context, templateID string, data forms.FormData) (*models.GeneratedDocument, error) {
	tmpl, err := s.templates.Get(templateID)
	if err != nil {
		return nil, &GenerationError{TemplateID: templateID, Err: err}
	}

	values := make(map[string]string, len(data))
	for _, f := range tmpl.Fields {
		if v := forms.Stringify(data[f.Name]); v != "" {
			values[f.Name] = v
		}
	}

	now := s.now()
	content, err := renderPDF(tmpl, values, now)
	if err != nil {
		return nil, &GenerationError{TemplateID: templateID, Err: err}
	}

	doc := &models.GeneratedDocument{
		ID:         uuid.New().String(),
		TemplateID: templateID,
		FileName:   fileName(tmpl, values, now),
		MimeType:   pdfMimeType,
		Size:       int64(len(content)),
		Data:       values,
		Content:    content,
		CreatedAt:  now,
	}

	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, &GenerationError{TemplateID: templateID, Err: err}
	}

	slog.Info("document generated",
		"document_id", doc.ID,
		"template_id", templateID,
		"file_name", doc.FileName,
		"size", doc.Size,
	)
	return doc, nil
}

// DownloadTemplate writes a blank PDF of the template to w and returns the
// suggested file name
func (s *Service) DownloadTemplate(ctx context.Context, templateID string, w io.Writer) (string, error) {
	tmpl, err := s.templates.Get(templateID)
	if err != nil {
		return "", &DownloadError{TemplateID: templateID, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", &DownloadError{TemplateID: templateID, Err: err}
	}

	content, err := renderPDF(tmpl, nil, s.now())
	if err != nil {
		return "", &DownloadError{TemplateID: templateID, Err: err}
	}
	if _, err := w.Write(content); err != nil {
		return "", &DownloadError{TemplateID: templateID, Err: err}
	}

	s.metrics.TemplateDownloaded()
	slog.Info("template downloaded", "template_id", templateID, "size", len(content))
	return tmpl.ID + "-blank.pdf", nil
}

// Get returns a stored document including its content
func (s *Service) Get(ctx context.Context, id string) (*models.GeneratedDocument, error) {
	return s.store.GetDocument(ctx, id)
}

// List returns stored document metadata
func (s *Service) List(ctx context.Context, filters models.DocumentFilters) ([]*models.GeneratedDocument, error) {
	return s.store.ListDocuments(ctx, filters)
}

// reference fields name the document when present, in priority order
var referenceFields = []string{"invoice_number", "quote_number", "certificate_number", "job_reference", "reference"}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func fileName(tmpl *models.DocumentTemplate, values map[string]string, now time.Time) string {
	parts := []string{tmpl.ID}
	for _, name := range referenceFields {
		if v := values[name]; v != "" {
			parts = append(parts, v)
			break
		}
	}
	parts = append(parts, now.Format("20060102-150405"))

	name := unsafeFileChars.ReplaceAllString(strings.Join(parts, "-"), "_")
	return fmt.Sprintf("%s.pdf", name)
}
