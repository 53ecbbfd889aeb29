package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elec-mate/elecmate-engine/internal/models"
)

type templateMap map[string]*models.DocumentTemplate

var errNoTemplate = errors.New("template not found")

func (m templateMap) Get(id string) (*models.DocumentTemplate, error) {
	t, ok := m[id]
	if !ok {
		return nil, errNoTemplate
	}
	return t, nil
}

func TestManagerRestoresFromDraftStore(t *testing.T) {
	ctx := context.Background()
	templates := templateMap{"electrical-invoice": invoiceTemplate()}
	drafts := NewMemoryDraftStore(time.Hour)

	first := NewManager(templates, &stubBackend{}, drafts, nil, nil)
	s, err := first.Create(ctx, "electrical-invoice")
	require.NoError(t, err)
	_, err = first.SetField(ctx, s.ID(), "client_name", "Jo")
	require.NoError(t, err)

	second := NewManager(templates, &stubBackend{}, drafts, nil, nil)
	restored, err := second.Get(ctx, s.ID())
	require.NoError(t, err)
	v, _ := restored.Value("client_name")
	require.Equal(t, "Jo", v)
}

func TestManagerGenerateAndClose(t *testing.T) {
	ctx := context.Background()
	m := NewManager(templateMap{"electrical-invoice": invoiceTemplate()}, &stubBackend{}, NewMemoryDraftStore(time.Hour), nil, nil)

	s, err := m.Create(ctx, "electrical-invoice")
	require.NoError(t, err)

	_, _, err = m.Generate(ctx, s.ID())
	require.ErrorIs(t, err, ErrValidationFailed)

	for name, v := range map[string]string{"client_name": "Jo", "email": "jo@example.com"} {
		_, err = m.SetField(ctx, s.ID(), name, v)
		require.NoError(t, err)
	}
	_, doc, err := m.Generate(ctx, s.ID())
	require.NoError(t, err)
	require.Equal(t, "doc-1", doc.ID)

	require.NoError(t, m.Close(ctx, s.ID()))
	_, err = m.Get(ctx, s.ID())
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerUnknownTemplate(t *testing.T) {
	m := NewManager(templateMap{}, &stubBackend{}, NewMemoryDraftStore(time.Hour), nil, nil)
	_, err := m.Create(context.Background(), "missing")
	require.ErrorIs(t, err, errNoTemplate)
}

func TestManagerSweepIdleKeepsDraft(t *testing.T) {
	ctx := context.Background()
	m := NewManager(templateMap{"electrical-invoice": invoiceTemplate()}, &stubBackend{}, NewMemoryDraftStore(time.Hour), nil, nil)
	s, err := m.Create(ctx, "electrical-invoice")
	require.NoError(t, err)

	require.Equal(t, 1, m.SweepIdle(time.Now().Add(time.Second)))
	require.Zero(t, m.Count())

	_, err = m.Get(ctx, s.ID())
	require.NoError(t, err)
	require.Equal(t, 1, m.Count())
}
