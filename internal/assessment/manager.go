package assessment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/elec-mate/elecmate-engine/internal/metrics"
	"github.com/elec-mate/elecmate-engine/internal/models"
	"github.com/elec-mate/elecmate-engine/internal/questions"
)

var ErrSessionNotFound = errors.New("exam session not found")

// Bank is a question source that also describes its exam
type Bank interface {
	QuestionSource
	Exam() models.ExamDefinition
}

// BankProvider looks up the bank behind an exam
type BankProvider interface {
	Lookup(examID string) (Bank, error)
}

// RegistryBanks adapts a question registry into a BankProvider
func RegistryBanks(reg *questions.Registry) BankProvider {
	return registryBanks{reg}
}

type registryBanks struct{ reg *questions.Registry }

func (r registryBanks) Lookup(examID string) (Bank, error) {
	b, err := r.reg.Bank(examID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// AttemptStore persists completed sittings
type AttemptStore interface {
	SaveAttempt(ctx context.Context, attempt *models.ExamAttempt) error
}

// Manager owns every live exam session
type Manager struct {
	banks        BankProvider
	attempts     AttemptStore
	metrics      *metrics.Collector
	tickInterval time.Duration
	duration     time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager. attempts and m may be nil.
func NewManager(banks BankProvider, attempts AttemptStore, m *metrics.Collector, tickInterval time.Duration) *Manager {
	return &Manager{
		banks:        banks,
		attempts:     attempts,
		metrics:      m,
		tickInterval: tickInterval,
		sessions:     make(map[string]*Session),
	}
}

// SetDuration overrides every exam's time limit. Zero keeps the bank's own.
func (m *Manager) SetDuration(d time.Duration) {
	m.duration = d
}

// Start creates and starts a session for examID
func (m *Manager) Start(examID string) (*Session, error) {
	bank, err := m.banks.Lookup(examID)
	if err != nil {
		return nil, err
	}

	cfg := ConfigFor(bank.Exam(), m.tickInterval)
	if m.duration > 0 {
		cfg.Duration = m.duration
	}
	s := NewSession(cfg, bank)
	s.OnComplete(m.record)
	if err := s.Start(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.metrics.ExamStarted(examID)
	m.metrics.SetExamSessions(n)
	slog.Info("exam session started", "session_id", s.ID(), "exam_id", examID)
	return s, nil
}

// Retake restarts a completed session with a fresh sample
func (m *Manager) Retake(id string) (*Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.Retake(); err != nil {
		return nil, err
	}
	m.metrics.ExamStarted(s.ExamID())
	slog.Info("exam session retaken", "session_id", id, "exam_id", s.ExamID())
	return s, nil
}

// Get returns a live session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Dispose stops and forgets a session
func (m *Manager) Dispose(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Dispose()
	m.metrics.SetExamSessions(n)
	slog.Info("exam session disposed", "session_id", id)
	return nil
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SweepIdle disposes sessions with no activity since before cutoff and
// returns how many were removed. Sittings still in progress are left to
// their countdown, which always ends in a submit.
func (m *Manager) SweepIdle(cutoff time.Time) int {
	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.State() == StateInProgress {
			continue
		}
		if s.LastActivity().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range stale {
		s.Dispose()
	}
	if len(stale) > 0 {
		m.metrics.SetExamSessions(n)
		m.metrics.SessionsSwept("exam", len(stale))
	}
	return len(stale)
}

// Shutdown disposes every session
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Dispose()
	}
	m.metrics.SetExamSessions(0)
}

func (m *Manager) record(attempt models.ExamAttempt) {
	m.metrics.ExamCompleted(attempt.ExamID, attempt.Passed, attempt.TimedOut)
	slog.Info("exam submitted",
		"session_id", attempt.SessionID,
		"exam_id", attempt.ExamID,
		"correct", attempt.Correct,
		"total", attempt.Total,
		"percentage", attempt.Percentage,
		"timed_out", attempt.TimedOut,
	)

	if m.attempts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.attempts.SaveAttempt(ctx, &attempt); err != nil {
		slog.Error("failed to save exam attempt", "session_id", attempt.SessionID, "error", err)
	}
}
