package generator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elec-mate/elecmate-engine/internal/documents"
	"github.com/elec-mate/elecmate-engine/internal/forms"
	"github.com/elec-mate/elecmate-engine/internal/models"
)

type stubBackend struct {
	mu      sync.Mutex
	calls   []forms.FormData
	err     error
	release chan struct{}
	entered chan struct{}
}

func (b *stubBackend) GenerateDocument(ctx context.Context, templateID string, data forms.FormData) (*models.GeneratedDocument, error) {
	b.mu.Lock()
	b.calls = append(b.calls, data)
	b.mu.Unlock()

	if b.entered != nil {
		b.entered <- struct{}{}
	}
	if b.release != nil {
		<-b.release
	}
	if b.err != nil {
		return nil, b.err
	}
	return &models.GeneratedDocument{ID: "doc-1", TemplateID: templateID, FileName: "invoice-INV-0001.pdf"}, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(_ string, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notices[len(r.notices)-1]
}

func invoiceTemplate() *models.DocumentTemplate {
	return &models.DocumentTemplate{
		ID:       "electrical-invoice",
		Name:     "Electrical Invoice",
		Category: models.CategoryInvoicing,
		Fields: []forms.Field{
			{Name: "client_name", Label: "Client Name", Kind: forms.Text{}, Required: true},
			{Name: "email", Label: "Email", Kind: forms.Email{}, Required: true},
			{Name: "postcode", Label: "Postcode", Kind: forms.Postcode{}},
			{Name: "total", Label: "Total", Kind: forms.Number{Currency: true}},
		},
	}
}

func fillValid(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.SetField("client_name", "Jo Bloggs"))
	require.NoError(t, s.SetField("email", "jo@example.co.uk"))
	require.NoError(t, s.SetField("postcode", "sw1a 1aa"))
}

func TestSetFieldUppercasesPostcode(t *testing.T) {
	s := NewSession(invoiceTemplate(), &stubBackend{}, nil)
	require.NoError(t, s.SetField("postcode", "m1 1ae"))

	v, ok := s.Value("postcode")
	require.True(t, ok)
	require.Equal(t, "M1 1AE", v)
}

func TestSetFieldUnknown(t *testing.T) {
	s := NewSession(invoiceTemplate(), &stubBackend{}, nil)
	require.ErrorIs(t, s.SetField("signature", "x"), ErrUnknownField)
}

func TestGenerateValidationFailure(t *testing.T) {
	backend := &stubBackend{}
	notifier := &recordingNotifier{}
	s := NewSession(invoiceTemplate(), backend, notifier)
	require.NoError(t, s.SetField("email", "not-an-email"))

	_, err := s.Generate(context.Background())
	require.ErrorIs(t, err, ErrValidationFailed)
	require.Empty(t, backend.calls)
	require.False(t, s.Generating())
	require.Equal(t, forms.Errors{
		"client_name": "Client Name is required",
		"email":       "Please enter a valid email address",
	}, s.Errors())
	require.Equal(t, Notice{Level: LevelError, Message: "Please fix 2 field(s) before generating"}, notifier.last())
}

func TestEditClearsErrorEagerly(t *testing.T) {
	s := NewSession(invoiceTemplate(), &stubBackend{}, nil)
	_, err := s.Generate(context.Background())
	require.ErrorIs(t, err, ErrValidationFailed)
	require.Contains(t, s.Errors(), "email")

	require.NoError(t, s.SetField("email", "still wrong"))
	require.NotContains(t, s.Errors(), "email")
	require.Contains(t, s.Errors(), "client_name")
}

func TestGenerateReplacesErrorMap(t *testing.T) {
	s := NewSession(invoiceTemplate(), &stubBackend{}, nil)
	_, _ = s.Generate(context.Background())
	require.Len(t, s.Errors(), 2)

	require.NoError(t, s.SetField("client_name", "Jo"))
	_, err := s.Generate(context.Background())
	require.ErrorIs(t, err, ErrValidationFailed)
	require.Equal(t, forms.Errors{"email": "Email is required"}, s.Errors())
}

func TestGenerateSuccess(t *testing.T) {
	backend := &stubBackend{}
	notifier := &recordingNotifier{}
	s := NewSession(invoiceTemplate(), backend, notifier)
	fillValid(t, s)

	doc, err := s.Generate(context.Background())
	require.NoError(t, err)
	require.Equal(t, "doc-1", doc.ID)
	require.Len(t, backend.calls, 1)
	require.Equal(t, "SW1A 1AA", backend.calls[0]["postcode"])

	require.True(t, s.Completed())
	require.False(t, s.Generating())
	_, ok := s.Value("client_name")
	require.False(t, ok)
	require.Equal(t, Notice{Level: LevelSuccess, Message: "invoice-INV-0001.pdf generated successfully"}, notifier.last())
	require.Equal(t, notifier.last(), *s.Notice())
	require.Equal(t, "invoice-INV-0001.pdf", s.Document().FileName)

	s.DismissNotice()
	require.Nil(t, s.Notice())
}

func TestBackendFailureClearsBusyFlag(t *testing.T) {
	boom := errors.New("connection refused")
	notifier := &recordingNotifier{}
	s := NewSession(invoiceTemplate(), &stubBackend{err: boom}, notifier)
	fillValid(t, s)

	_, err := s.Generate(context.Background())
	require.False(t, s.Generating())

	var genErr *documents.GenerationError
	require.ErrorAs(t, err, &genErr)
	require.ErrorIs(t, err, boom)
	require.Equal(t, "electrical-invoice", genErr.TemplateID)
	require.Equal(t, Notice{Level: LevelError, Message: "Failed to generate document. Please try again."}, notifier.last())

	v, ok := s.Value("client_name")
	require.True(t, ok)
	require.Equal(t, "Jo Bloggs", v)
	require.False(t, s.Completed())
}

func TestConcurrentGenerateRejected(t *testing.T) {
	backend := &stubBackend{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := NewSession(invoiceTemplate(), backend, nil)
	fillValid(t, s)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background())
		errc <- err
	}()

	<-backend.entered
	require.True(t, s.Generating())

	_, err := s.Generate(context.Background())
	require.ErrorIs(t, err, ErrGenerationInProgress)

	require.NoError(t, s.SetField("total", "120.00"))

	close(backend.release)
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("generate did not return")
	}
	require.False(t, s.Generating())
}

func TestFieldsInDeclarationOrder(t *testing.T) {
	s := NewSession(invoiceTemplate(), &stubBackend{}, nil)
	require.NoError(t, s.SetField("total", 99.5))
	_, _ = s.Generate(context.Background())

	views := s.Fields()
	require.Len(t, views, 4)
	require.Equal(t, "client_name", views[0].Field.Name)
	require.Equal(t, "Client Name is required", views[0].Error)
	require.Equal(t, "99.5", views[3].Value)
	require.Equal(t, "£", views[3].Field.Kind.Input().Prefix)
}

func TestCloseDiscardsState(t *testing.T) {
	s := NewSession(invoiceTemplate(), &stubBackend{}, nil)
	fillValid(t, s)
	s.Close()

	_, ok := s.Value("client_name")
	require.False(t, ok)
	require.ErrorIs(t, s.SetField("email", "a@b.co"), ErrSessionClosed)
	_, err := s.Generate(context.Background())
	require.ErrorIs(t, err, ErrSessionClosed)
}
