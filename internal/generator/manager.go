package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/elec-mate/elecmate-engine/internal/metrics"
	"github.com/elec-mate/elecmate-engine/internal/models"
)

var ErrSessionNotFound = errors.New("generator session not found")

// TemplateSource resolves templates by ID
type TemplateSource interface {
	Get(id string) (*models.DocumentTemplate, error)
}

// Manager keeps live generator sessions and mirrors them into a DraftStore
// so a session survives a restart or a hop to another instance
type Manager struct {
	templates TemplateSource
	backend   Backend
	notifier  Notifier
	drafts    DraftStore
	metrics   *metrics.Collector

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager. notifier and m may be nil.
func NewManager(templates TemplateSource, backend Backend, drafts DraftStore, notifier Notifier, m *metrics.Collector) *Manager {
	return &Manager{
		templates: templates,
		backend:   backend,
		notifier:  notifier,
		drafts:    drafts,
		metrics:   m,
		sessions:  make(map[string]*Session),
	}
}

// Create opens a session for templateID
func (m *Manager) Create(ctx context.Context, templateID string) (*Session, error) {
	tmpl, err := m.templates.Get(templateID)
	if err != nil {
		return nil, err
	}

	s := NewSession(tmpl, m.backend, m.notifier)
	if err := m.drafts.Save(ctx, s.Snapshot()); err != nil {
		return nil, err
	}
	m.put(s)

	slog.Info("generator session opened", "session_id", s.ID(), "template_id", templateID)
	return s, nil
}

// Get returns a live session, restoring it from its draft when needed
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	d, err := m.drafts.Load(ctx, id)
	if errors.Is(err, ErrDraftNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	tmpl, err := m.templates.Get(d.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("draft %s: %w", id, err)
	}
	s, err = Restore(d, tmpl, m.backend, m.notifier)
	if err != nil {
		return nil, err
	}

	slog.Debug("generator session restored", "session_id", id, "template_id", d.TemplateID)
	return m.put(s), nil
}

// SetField updates one field and persists the draft
func (m *Manager) SetField(ctx context.Context, id, name string, value any) (*Session, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.SetField(name, value); err != nil {
		return nil, err
	}
	return s, m.drafts.Save(ctx, s.Snapshot())
}

// Generate runs the session's generate action and persists the outcome
func (m *Manager) Generate(ctx context.Context, id string) (*Session, *models.GeneratedDocument, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	doc, genErr := s.Generate(ctx)
	switch {
	case errors.Is(genErr, ErrValidationFailed):
		m.metrics.ValidationFailed(s.Template().ID)
	case errors.Is(genErr, ErrGenerationInProgress):
		return s, nil, genErr
	default:
		m.metrics.DocumentGenerated(s.Template().ID, genErr)
	}

	if err := m.drafts.Save(ctx, s.Snapshot()); err != nil {
		slog.Warn("failed to save generator draft", "session_id", id, "error", err)
	}
	return s, doc, genErr
}

// Close discards a session and its draft
func (m *Manager) Close(ctx context.Context, id string) error {
	s, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	s.Close()

	m.mu.Lock()
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	m.metrics.SetGeneratorSessions(n)

	return m.drafts.Delete(ctx, id)
}

// SweepIdle drops in-memory sessions untouched since cutoff. Their drafts
// remain in the store until the draft TTL expires.
func (m *Manager) SweepIdle(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	swept := 0
	for id, s := range m.sessions {
		if s.Generating() || !s.UpdatedAt().Before(cutoff) {
			continue
		}
		delete(m.sessions, id)
		swept++
	}
	m.metrics.SetGeneratorSessions(len(m.sessions))
	m.metrics.SessionsSwept("generator", swept)
	return swept
}

// Count returns the number of in-memory sessions
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) put(s *Session) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[s.ID()]; ok {
		return existing
	}
	m.sessions[s.ID()] = s
	m.metrics.SetGeneratorSessions(len(m.sessions))
	return s
}
