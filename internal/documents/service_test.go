package documents

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elec-mate/elecmate-engine/internal/forms"
	"github.com/elec-mate/elecmate-engine/internal/models"
	"github.com/elec-mate/elecmate-engine/internal/storage"
	"github.com/elec-mate/elecmate-engine/internal/templates"
)

func invoiceTemplate() *models.DocumentTemplate {
	return &models.DocumentTemplate{
		ID:                  "electrical-invoice",
		Name:                "Electrical Invoice",
		Description:         "Itemised invoice with VAT",
		Category:            models.CategoryInvoicing,
		UKSpecific:          true,
		RegulationCompliant: []string{"BS 7671:2018+A2:2022"},
		Fields: []forms.Field{
			{Name: "invoice_number", Label: "Invoice Number", Kind: forms.Text{}, Required: true},
			{Name: "client_name", Label: "Client Name", Kind: forms.Text{}, Required: true},
			{Name: "labour_total", Label: "Labour Total", Kind: forms.Number{Currency: true}},
			{Name: "notes", Label: "Notes", Kind: forms.Textarea{}},
		},
	}
}

func newTestService(t *testing.T) (*Service, *storage.MemoryRepository) {
	t.Helper()
	loader := templates.NewLoader()
	loader.Add(invoiceTemplate())
	repo := storage.NewMemoryRepository()

	svc := NewService(loader, repo, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC) }
	return svc, repo
}

type failingStore struct{ *storage.MemoryRepository }

func (*failingStore) CreateDocument(context.Context, *models.GeneratedDocument) error {
	return errors.New("disk full")
}

func TestGenerateDocumentStoresPDF(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	doc, err := svc.GenerateDocument(ctx, "electrical-invoice", forms.FormData{
		"invoice_number": "INV-0001",
		"client_name":    "Jo Bloggs",
		"labour_total":   250.5,
		"unknown":        "ignored",
	})
	require.NoError(t, err)
	require.Equal(t, "electrical-invoice-INV-0001-20240601-093000.pdf", doc.FileName)
	require.Equal(t, "application/pdf", doc.MimeType)
	require.Equal(t, map[string]string{"invoice_number": "INV-0001", "client_name": "Jo Bloggs", "labour_total": "250.5"}, doc.Data)
	require.True(t, bytes.HasPrefix(doc.Content, []byte("%PDF")))
	require.Equal(t, int64(len(doc.Content)), doc.Size)

	stored, err := repo.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.Content, stored.Content)
}

func TestGenerateDocumentUnknownTemplate(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GenerateDocument(context.Background(), "nope", nil)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	require.ErrorIs(t, err, templates.ErrTemplateNotFound)
}

func TestGenerateDocumentStoreFailure(t *testing.T) {
	loader := templates.NewLoader()
	loader.Add(invoiceTemplate())
	svc := NewService(loader, &failingStore{storage.NewMemoryRepository()}, nil)

	_, err := svc.GenerateDocument(context.Background(), "electrical-invoice", forms.FormData{"invoice_number": "INV-1"})
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	require.Equal(t, "electrical-invoice", genErr.TemplateID)
}

func TestDownloadTemplate(t *testing.T) {
	svc, _ := newTestService(t)
	var buf bytes.Buffer

	name, err := svc.DownloadTemplate(context.Background(), "electrical-invoice", &buf)
	require.NoError(t, err)
	require.Equal(t, "electrical-invoice-blank.pdf", name)
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	_, err = svc.DownloadTemplate(context.Background(), "nope", &buf)
	var dlErr *DownloadError
	require.ErrorAs(t, err, &dlErr)
}

func TestListTemplatesCancelled(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ListTemplates(ctx)
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.ErrorIs(t, err, context.Canceled)
}

func TestListCategories(t *testing.T) {
	svc, _ := newTestService(t)
	cats, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.CategorySummary{ID: "all", Label: "All Templates", Count: 1}, cats[0])
	require.Equal(t, 1, cats[1].Count)
}

func TestDisplayValue(t *testing.T) {
	currency := forms.Field{Kind: forms.Number{Currency: true}}
	require.Equal(t, "£12.50", displayValue(currency, "12.50"))
	require.Equal(t, "£12.50", displayValue(currency, "£12.50"))
	require.Equal(t, "-", displayValue(forms.Field{Kind: forms.Text{}}, ""))
}

func TestFileNameSanitised(t *testing.T) {
	name := fileName(&models.DocumentTemplate{ID: "quotation"}, map[string]string{"quote_number": "Q 12/3"}, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.Equal(t, "quotation-Q_12_3-20240102-030405.pdf", name)
}
