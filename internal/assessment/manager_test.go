package assessment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elec-mate/elecmate-engine/internal/models"
	"github.com/elec-mate/elecmate-engine/internal/questions"
)

type memoryAttempts struct {
	mu    sync.Mutex
	saved []models.ExamAttempt
}

func (m *memoryAttempts) SaveAttempt(_ context.Context, a *models.ExamAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, *a)
	return nil
}

func testRegistry() *questions.Registry {
	reg := questions.NewRegistry()
	reg.Add(questions.NewBank(models.ExamDefinition{
		ID:            "mock",
		Title:         "Mock",
		QuestionCount: 3,
		Duration:      time.Minute,
		PassMark:      70,
		Mix:           models.DefaultMix(),
	}, questionsWithAnswers(0, 1, 2, 3), nil))
	return reg
}

func TestManagerLifecycle(t *testing.T) {
	attempts := &memoryAttempts{}
	m := NewManager(RegistryBanks(testRegistry()), attempts, nil, 0)
	t.Cleanup(m.Shutdown)

	s, err := m.Start("mock")
	require.NoError(t, err)
	require.Equal(t, 1, m.Count())
	require.Equal(t, 60, s.TimeRemaining())
	require.Equal(t, 3, s.Snapshot().Total)

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	require.Same(t, s, got)

	_, err = s.Submit()
	require.NoError(t, err)
	require.Len(t, attempts.saved, 1)
	require.Equal(t, s.ID(), attempts.saved[0].SessionID)

	_, err = m.Retake(s.ID())
	require.NoError(t, err)
	require.Equal(t, StateInProgress, s.State())

	require.NoError(t, m.Dispose(s.ID()))
	_, err = m.Get(s.ID())
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, m.Dispose(s.ID()), ErrSessionNotFound)
}

func TestManagerUnknownExam(t *testing.T) {
	m := NewManager(RegistryBanks(testRegistry()), nil, nil, 0)
	_, err := m.Start("missing")
	require.ErrorIs(t, err, questions.ErrBankNotFound)
}

func TestManagerSweepIdle(t *testing.T) {
	m := NewManager(RegistryBanks(testRegistry()), nil, nil, 0)
	t.Cleanup(m.Shutdown)

	s, err := m.Start("mock")
	require.NoError(t, err)
	_, err = s.Submit()
	require.NoError(t, err)

	require.Zero(t, m.SweepIdle(time.Now().Add(-time.Hour)))
	require.Equal(t, 1, m.SweepIdle(time.Now().Add(time.Second)))
	require.ErrorIs(t, s.SelectAnswer(0), ErrDisposed)
	require.Zero(t, m.Count())
}

func TestManagerSweepKeepsRunningExam(t *testing.T) {
	attempts := &memoryAttempts{}
	m := NewManager(RegistryBanks(testRegistry()), attempts, nil, 10*time.Millisecond)
	t.Cleanup(m.Shutdown)

	s, err := m.Start("mock")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	require.Zero(t, m.SweepIdle(time.Now().Add(time.Hour)))
	require.Equal(t, 1, m.Count())
	require.Equal(t, StateInProgress, s.State())

	require.Eventually(t, func() bool {
		attempts.mu.Lock()
		defer attempts.mu.Unlock()
		return len(attempts.saved) == 1
	}, 5*time.Second, 5*time.Millisecond)
	require.Equal(t, StateCompleted, s.State())
	require.True(t, s.Snapshot().TimedOut)

	require.Equal(t, 1, m.SweepIdle(time.Now().Add(time.Hour)))
	require.Zero(t, m.Count())
}

func TestManagerDurationOverride(t *testing.T) {
	m := NewManager(RegistryBanks(testRegistry()), nil, nil, 0)
	t.Cleanup(m.Shutdown)
	m.SetDuration(10 * time.Second)

	s, err := m.Start("mock")
	require.NoError(t, err)
	require.Equal(t, 10, s.TimeRemaining())
}
