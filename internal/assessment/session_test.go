package assessment

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elec-mate/elecmate-engine/internal/models"
)

type fixedSource struct {
	mu    sync.Mutex
	qs    []models.Question
	draws int
	err   error
}

func (f *fixedSource) GetRandomQuestions(count int, _ models.Mix) ([]models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draws++
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Question(nil), f.qs...), nil
}

func questionsWithAnswers(correct ...int) []models.Question {
	qs := make([]models.Question, len(correct))
	for i, c := range correct {
		qs[i] = models.Question{
			ID:            i + 1,
			Question:      "q",
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: c,
			Section:       []string{"Science", "Safety"}[i%2],
			Topic:         "Topic",
		}
	}
	return qs
}

func startedSession(t *testing.T, correct ...int) *Session {
	t.Helper()
	s := NewSession(Config{ExamID: "mock", QuestionCount: len(correct)}, &fixedSource{qs: questionsWithAnswers(correct...)})
	require.NoError(t, s.Start())
	t.Cleanup(s.Dispose)
	return s
}

func answer(t *testing.T, s *Session, answers map[int]int) {
	t.Helper()
	for i, a := range answers {
		require.NoError(t, s.GoTo(i))
		require.NoError(t, s.SelectAnswer(a))
	}
}

func TestStartResetsState(t *testing.T) {
	s := startedSession(t, 0, 1, 2)

	require.Equal(t, StateInProgress, s.State())
	require.Equal(t, 2700, s.TimeRemaining())
	require.Equal(t, 0, s.CurrentIndex())
	require.Empty(t, s.Answers())
	require.Empty(t, s.Flagged())
	require.ErrorIs(t, s.Start(), ErrAlreadyStarted)
}

func TestScoreCountsCorrectAnswers(t *testing.T) {
	s := startedSession(t, 0, 1, 2, 3, 0)
	answer(t, s, map[int]int{0: 0, 1: 1, 2: 0, 4: 0})

	score, err := s.Submit()
	require.NoError(t, err)
	require.Equal(t, Score{Correct: 3, Total: 5, Percentage: 60, Passed: false}, score)
	require.Equal(t, score, s.Score())
}

func TestScoreRoundsAndPasses(t *testing.T) {
	require.Equal(t, Score{Correct: 2, Total: 3, Percentage: 67}, newScore(2, 3, 70))
	require.Equal(t, Score{Correct: 7, Total: 10, Percentage: 70, Passed: true}, newScore(7, 10, 70))
	require.Equal(t, Score{}, newScore(0, 0, 70))
}

func TestTimerAutoSubmits(t *testing.T) {
	s := startedSession(t, 0, 1)

	for i := 0; i < 2699; i++ {
		s.Tick()
	}
	require.Equal(t, StateInProgress, s.State())
	require.Equal(t, 1, s.TimeRemaining())

	s.Tick()
	require.Equal(t, StateCompleted, s.State())
	require.Equal(t, 0, s.TimeRemaining())
	require.True(t, s.Snapshot().TimedOut)

	s.Tick()
	require.Equal(t, 0, s.TimeRemaining())
}

func TestSelectAnswerOverwrites(t *testing.T) {
	s := startedSession(t, 0, 1)

	require.NoError(t, s.SelectAnswer(2))
	require.NoError(t, s.SelectAnswer(3))
	require.Equal(t, map[int]int{0: 3}, s.Answers())
	require.Equal(t, 0, s.CurrentIndex())

	require.ErrorIs(t, s.SelectAnswer(4), ErrInvalidOption)
	require.ErrorIs(t, s.SelectAnswer(-1), ErrInvalidOption)
}

func TestNavigationClamps(t *testing.T) {
	s := startedSession(t, 0, 1, 2)

	require.NoError(t, s.Previous())
	require.Equal(t, 0, s.CurrentIndex())

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Next())
	}
	require.Equal(t, 2, s.CurrentIndex())

	require.ErrorIs(t, s.GoTo(3), ErrInvalidIndex)
}

func TestToggleFlagTwiceRestores(t *testing.T) {
	s := startedSession(t, 0, 1, 2)
	require.NoError(t, s.GoTo(2))
	require.NoError(t, s.ToggleFlag())
	require.NoError(t, s.GoTo(1))

	before := s.Flagged()
	require.NoError(t, s.ToggleFlag())
	require.NoError(t, s.ToggleFlag())
	require.Equal(t, before, s.Flagged())
}

func TestNextFlaggedWraps(t *testing.T) {
	s := startedSession(t, 0, 0, 0, 0, 0)

	require.NoError(t, s.NextFlagged())
	require.Equal(t, 0, s.CurrentIndex())

	for _, i := range []int{1, 3} {
		require.NoError(t, s.GoTo(i))
		require.NoError(t, s.ToggleFlag())
	}

	require.NoError(t, s.GoTo(0))
	require.NoError(t, s.NextFlagged())
	require.Equal(t, 1, s.CurrentIndex())
	require.NoError(t, s.NextFlagged())
	require.Equal(t, 3, s.CurrentIndex())
	require.NoError(t, s.NextFlagged())
	require.Equal(t, 1, s.CurrentIndex())
}

func TestSubmitFreezesAnswers(t *testing.T) {
	s := startedSession(t, 0, 1)
	require.NoError(t, s.SelectAnswer(0))
	_, err := s.Submit()
	require.NoError(t, err)

	require.ErrorIs(t, s.SelectAnswer(1), ErrSessionCompleted)
	require.ErrorIs(t, s.Next(), ErrSessionCompleted)
	require.ErrorIs(t, s.ToggleFlag(), ErrSessionCompleted)
	_, err = s.Submit()
	require.ErrorIs(t, err, ErrSessionCompleted)
	require.Equal(t, map[int]int{0: 0}, s.Answers())
}

func TestActionsBeforeStart(t *testing.T) {
	s := NewSession(Config{QuestionCount: 2}, &fixedSource{qs: questionsWithAnswers(0, 1)})
	require.ErrorIs(t, s.SelectAnswer(0), ErrNotStarted)
	_, err := s.Submit()
	require.ErrorIs(t, err, ErrNotStarted)
	require.ErrorIs(t, s.Retake(), ErrNotCompleted)
}

func TestSubmitEnabled(t *testing.T) {
	s := startedSession(t, 0, 1, 2)
	require.True(t, s.SubmitEnabled())

	require.NoError(t, s.GoTo(2))
	require.False(t, s.SubmitEnabled())

	require.NoError(t, s.SelectAnswer(1))
	require.True(t, s.SubmitEnabled())
}

func TestSubmitWithNoAnswersIsAllowed(t *testing.T) {
	s := startedSession(t, 0, 1)
	score, err := s.Submit()
	require.NoError(t, err)
	require.Equal(t, 0, score.Correct)
}

func TestRetakeDrawsFreshSample(t *testing.T) {
	src := &fixedSource{qs: questionsWithAnswers(0, 1)}
	s := NewSession(Config{QuestionCount: 2}, src)
	t.Cleanup(s.Dispose)
	require.NoError(t, s.Start())
	require.NoError(t, s.SelectAnswer(0))
	require.NoError(t, s.ToggleFlag())
	_, err := s.Submit()
	require.NoError(t, err)

	require.NoError(t, s.Retake())
	require.Equal(t, 2, src.draws)
	require.Equal(t, StateInProgress, s.State())
	require.Empty(t, s.Answers())
	require.Empty(t, s.Flagged())
	require.Equal(t, 2700, s.TimeRemaining())
}

func TestStartPropagatesSourceError(t *testing.T) {
	boom := errors.New("bank offline")
	s := NewSession(Config{}, &fixedSource{err: boom})
	require.ErrorIs(t, s.Start(), boom)
	require.Equal(t, StateNotStarted, s.State())

	s = NewSession(Config{}, &fixedSource{})
	require.ErrorIs(t, s.Start(), ErrNoQuestions)
}

func TestBreakdown(t *testing.T) {
	s := startedSession(t, 0, 1, 2, 3)
	_, err := s.Breakdown()
	require.ErrorIs(t, err, ErrNotCompleted)

	answer(t, s, map[int]int{0: 0, 1: 1, 2: 0})
	_, err = s.Submit()
	require.NoError(t, err)

	b, err := s.Breakdown()
	require.NoError(t, err)
	require.Equal(t, []GroupScore{
		{Name: "Safety", Correct: 1, Total: 2},
		{Name: "Science", Correct: 1, Total: 2},
	}, b.Sections)
	require.Equal(t, []GroupScore{{Name: "Topic", Correct: 2, Total: 4}}, b.Topics)
}

func TestCountdownRunsAndStopsOnSubmit(t *testing.T) {
	s := NewSession(Config{QuestionCount: 1, Duration: time.Hour, TickInterval: time.Millisecond},
		&fixedSource{qs: questionsWithAnswers(0)})
	require.NoError(t, s.Start())
	t.Cleanup(s.Dispose)

	require.Eventually(t, func() bool { return s.TimeRemaining() < 3600 }, time.Second, time.Millisecond)

	_, err := s.Submit()
	require.NoError(t, err)
	frozen := s.TimeRemaining()

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, frozen, s.TimeRemaining())
}

func TestCountdownExpiryCallsHookOnce(t *testing.T) {
	s := NewSession(Config{ExamID: "mock", QuestionCount: 1, Duration: 3 * time.Second, TickInterval: time.Millisecond},
		&fixedSource{qs: questionsWithAnswers(0)})

	var mu sync.Mutex
	var attempts []models.ExamAttempt
	s.OnComplete(func(a models.ExamAttempt) {
		mu.Lock()
		defer mu.Unlock()
		attempts = append(attempts, a)
	})

	require.NoError(t, s.Start())
	t.Cleanup(s.Dispose)

	require.Eventually(t, func() bool { return s.State() == StateCompleted }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, attempts, 1)
	require.True(t, attempts[0].TimedOut)
	require.Equal(t, "mock", attempts[0].ExamID)
	require.Equal(t, []int{1}, attempts[0].QuestionIDs)
}

func TestDisposeStopsCountdown(t *testing.T) {
	s := NewSession(Config{QuestionCount: 1, Duration: time.Hour, TickInterval: time.Millisecond},
		&fixedSource{qs: questionsWithAnswers(0)})
	require.NoError(t, s.Start())

	events, _ := s.Subscribe()
	s.Dispose()

	remaining := s.TimeRemaining()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, remaining, s.TimeRemaining())
	require.ErrorIs(t, s.SelectAnswer(0), ErrDisposed)

	for range events {
	}
}

func TestSubscribeReceivesSubmitted(t *testing.T) {
	s := startedSession(t, 0)
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.Tick()
	_, err := s.Submit()
	require.NoError(t, err)

	ev := <-events
	require.Equal(t, EventTick, ev.Type)
	require.Equal(t, 2699, ev.TimeRemaining)

	ev = <-events
	require.Equal(t, EventSubmitted, ev.Type)
	require.Equal(t, StateCompleted, ev.State)
	require.NotNil(t, ev.Score)
}
