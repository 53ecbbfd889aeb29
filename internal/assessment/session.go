package assessment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elec-mate/elecmate-engine/internal/models"
)

var (
	ErrNotStarted       = errors.New("exam has not started")
	ErrSessionCompleted = errors.New("exam already submitted")
	ErrNotCompleted     = errors.New("exam not yet submitted")
	ErrAlreadyStarted   = errors.New("exam already in progress")
	ErrInvalidOption    = errors.New("option out of range")
	ErrInvalidIndex     = errors.New("question index out of range")
	ErrNoQuestions      = errors.New("question bank returned no questions")
	ErrDisposed         = errors.New("exam session disposed")
)

// PassPercentage is the threshold used to frame a result as a pass
const PassPercentage = 70

// State is the lifecycle position of an exam session
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// QuestionSource draws the questions for one sitting
type QuestionSource interface {
	GetRandomQuestions(count int, mix models.Mix) ([]models.Question, error)
}

// Config describes the exam a session runs
type Config struct {
	ExamID        string
	QuestionCount int
	Duration      time.Duration
	Mix           models.Mix
	PassMark      int

	// TickInterval is the wall-clock period of the countdown. Zero disables
	// the background countdown and leaves Tick to the caller.
	TickInterval time.Duration
}

// ConfigFor builds a session config from an exam definition
func ConfigFor(exam models.ExamDefinition, tickInterval time.Duration) Config {
	return Config{
		ExamID:        exam.ID,
		QuestionCount: exam.QuestionCount,
		Duration:      exam.Duration,
		Mix:           exam.Mix,
		PassMark:      exam.PassMark,
		TickInterval:  tickInterval,
	}
}

// Score is the result of a submitted sitting
type Score struct {
	Correct    int  `json:"correct"`
	Total      int  `json:"total"`
	Percentage int  `json:"percentage"`
	Passed     bool `json:"passed"`
}

// Session is one timed mock exam. All methods are safe for concurrent use;
// the countdown goroutine and API handlers share it.
type Session struct {
	id     string
	cfg    Config
	source QuestionSource

	mu           sync.Mutex
	state        State
	reviewing    bool
	filter       ReviewFilter
	questions    []models.Question
	answers      map[int]int
	flagged      map[int]bool
	current      int
	remaining    int
	timedOut     bool
	startedAt    time.Time
	completedAt  time.Time
	lastActivity time.Time
	disposed     bool
	countdown    *countdown

	subs    map[int]chan Event
	nextSub int

	onComplete func(models.ExamAttempt)
}

// NewSession creates a session in the NotStarted state
func NewSession(cfg Config, source QuestionSource) *Session {
	if cfg.Duration <= 0 {
		cfg.Duration = 45 * time.Minute
	}
	if cfg.PassMark <= 0 {
		cfg.PassMark = PassPercentage
	}
	if len(cfg.Mix) == 0 {
		cfg.Mix = models.DefaultMix()
	}
	return &Session{
		id:           uuid.New().String(),
		cfg:          cfg,
		source:       source,
		state:        StateNotStarted,
		filter:       FilterAll,
		answers:      make(map[int]int),
		flagged:      make(map[int]bool),
		lastActivity: time.Now(),
		subs:         make(map[int]chan Event),
	}
}

// OnComplete registers a hook called once per submission, outside the
// session lock
func (s *Session) OnComplete(fn func(models.ExamAttempt)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = fn
}

func (s *Session) ID() string     { return s.id }
func (s *Session) ExamID() string { return s.cfg.ExamID }

// Start draws a fresh sample and begins the countdown
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.disposed:
		return ErrDisposed
	case s.state == StateInProgress:
		return ErrAlreadyStarted
	}
	return s.startLocked()
}

func (s *Session) startLocked() error {
	qs, err := s.source.GetRandomQuestions(s.cfg.QuestionCount, s.cfg.Mix)
	if err != nil {
		return fmt.Errorf("failed to draw questions: %w", err)
	}
	if len(qs) == 0 {
		return ErrNoQuestions
	}

	s.questions = qs
	s.answers = make(map[int]int)
	s.flagged = make(map[int]bool)
	s.current = 0
	s.remaining = int(s.cfg.Duration / time.Second)
	s.timedOut = false
	s.reviewing = false
	s.filter = FilterAll
	s.state = StateInProgress
	s.startedAt = time.Now()
	s.completedAt = time.Time{}
	s.touch()

	if s.cfg.TickInterval > 0 {
		s.countdown = startCountdown(s, s.cfg.TickInterval)
	}
	s.publish(EventStarted)
	return nil
}

// Tick applies one second of elapsed time. Reaching zero submits the exam.
func (s *Session) Tick() {
	s.mu.Lock()
	attempt, done := s.tickLocked()
	s.mu.Unlock()
	if done {
		s.finish(attempt)
	}
}

func (s *Session) tickLocked() (models.ExamAttempt, bool) {
	if s.state != StateInProgress || s.remaining <= 0 {
		return models.ExamAttempt{}, false
	}
	s.remaining--
	if s.remaining > 0 {
		s.publish(EventTick)
		return models.ExamAttempt{}, false
	}
	s.timedOut = true
	return s.submitLocked(), true
}

// SelectAnswer records option for the current question, replacing any
// earlier choice
func (s *Session) SelectAnswer(option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgress(); err != nil {
		return err
	}
	if option < 0 || option >= len(s.questions[s.current].Options) {
		return ErrInvalidOption
	}
	s.answers[s.current] = option
	s.touch()
	return nil
}

// Next moves forward one question, stopping at the last
func (s *Session) Next() error {
	return s.move(1)
}

// Previous moves back one question, stopping at the first
func (s *Session) Previous() error {
	return s.move(-1)
}

func (s *Session) move(delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgress(); err != nil {
		return err
	}
	s.current = clamp(s.current+delta, 0, len(s.questions)-1)
	s.touch()
	return nil
}

// GoTo jumps to question index
func (s *Session) GoTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgress(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.questions) {
		return ErrInvalidIndex
	}
	s.current = index
	s.touch()
	return nil
}

// ToggleFlag adds or removes the current question from the flagged set
func (s *Session) ToggleFlag() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgress(); err != nil {
		return err
	}
	if s.flagged[s.current] {
		delete(s.flagged, s.current)
	} else {
		s.flagged[s.current] = true
	}
	s.touch()
	return nil
}

// NextFlagged moves to the next flagged question after the current one,
// wrapping to the lowest. It does nothing when no question is flagged.
func (s *Session) NextFlagged() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgress(); err != nil {
		return err
	}
	flagged := s.flaggedIndices()
	if len(flagged) == 0 {
		return nil
	}
	next := flagged[0]
	for _, i := range flagged {
		if i > s.current {
			next = i
			break
		}
	}
	s.current = next
	s.touch()
	return nil
}

// Submit completes the exam and freezes the answers
func (s *Session) Submit() (Score, error) {
	s.mu.Lock()
	if err := s.requireInProgress(); err != nil {
		s.mu.Unlock()
		return Score{}, err
	}
	attempt := s.submitLocked()
	score := s.scoreLocked()
	s.mu.Unlock()

	s.finish(attempt)
	return score, nil
}

func (s *Session) submitLocked() models.ExamAttempt {
	s.stopCountdown()
	s.state = StateCompleted
	s.completedAt = time.Now()
	s.touch()

	score := s.scoreLocked()
	s.publish(EventSubmitted)

	answers := make(map[int]int, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	ids := make([]int, len(s.questions))
	for i, q := range s.questions {
		ids[i] = q.ID
	}

	return models.ExamAttempt{
		ID:          uuid.New().String(),
		ExamID:      s.cfg.ExamID,
		SessionID:   s.id,
		Correct:     score.Correct,
		Total:       score.Total,
		Percentage:  score.Percentage,
		Passed:      score.Passed,
		Answered:    len(s.answers),
		Flagged:     len(s.flagged),
		TimedOut:    s.timedOut,
		Answers:     answers,
		QuestionIDs: ids,
		StartedAt:   s.startedAt,
		CompletedAt: s.completedAt,
	}
}

func (s *Session) finish(attempt models.ExamAttempt) {
	s.mu.Lock()
	hook := s.onComplete
	s.mu.Unlock()
	if hook != nil {
		hook(attempt)
	}
}

// Retake discards the completed sitting and starts again with a new sample
func (s *Session) Retake() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrDisposed
	}
	if s.state != StateCompleted {
		return ErrNotCompleted
	}
	return s.startLocked()
}

// Score counts correct answers. Unanswered questions are wrong.
func (s *Session) Score() Score {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoreLocked()
}

func (s *Session) scoreLocked() Score {
	correct := 0
	for i, q := range s.questions {
		if a, ok := s.answers[i]; ok && a == q.CorrectAnswer {
			correct++
		}
	}
	return newScore(correct, len(s.questions), s.cfg.PassMark)
}

func newScore(correct, total, passMark int) Score {
	pct := 0
	if total > 0 {
		pct = int(math.Round(100 * float64(correct) / float64(total)))
	}
	return Score{Correct: correct, Total: total, Percentage: pct, Passed: pct >= passMark}
}

// SubmitEnabled is false only on the last question with nothing answered
func (s *Session) SubmitEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitEnabledLocked()
}

func (s *Session) submitEnabledLocked() bool {
	if s.state != StateInProgress {
		return false
	}
	return !(s.current == len(s.questions)-1 && len(s.answers) == 0)
}

// GroupScore is the correct/total count for one section or topic
type GroupScore struct {
	Name    string `json:"name"`
	Correct int    `json:"correct"`
	Total   int    `json:"total"`
}

// Breakdown splits the score by section and by topic
type Breakdown struct {
	Sections []GroupScore `json:"sections"`
	Topics   []GroupScore `json:"topics"`
}

// Breakdown is only available once the exam is submitted
func (s *Session) Breakdown() (Breakdown, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCompleted {
		return Breakdown{}, ErrNotCompleted
	}

	sections := map[string]*GroupScore{}
	topics := map[string]*GroupScore{}
	add := func(groups map[string]*GroupScore, name string, ok bool) {
		if name == "" {
			name = "General"
		}
		g, exists := groups[name]
		if !exists {
			g = &GroupScore{Name: name}
			groups[name] = g
		}
		g.Total++
		if ok {
			g.Correct++
		}
	}

	for i, q := range s.questions {
		a, answered := s.answers[i]
		ok := answered && a == q.CorrectAnswer
		add(sections, q.Section, ok)
		add(topics, q.Topic, ok)
	}
	return Breakdown{Sections: sortedGroups(sections), Topics: sortedGroups(topics)}, nil
}

func sortedGroups(m map[string]*GroupScore) []GroupScore {
	out := make([]GroupScore, 0, len(m))
	for _, g := range m {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// State returns the lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TimeRemaining returns the countdown in whole seconds
func (s *Session) TimeRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// CurrentIndex returns the question pointer
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Flagged returns flagged indices in ascending order
func (s *Session) Flagged() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flaggedIndices()
}

// Answers returns a copy of the selected answers
func (s *Session) Answers() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// LastActivity is when the session was last mutated
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Dispose stops the countdown and closes every subscriber. It blocks until
// the countdown goroutine has exited.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	cd := s.countdown
	s.stopCountdown()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.mu.Unlock()

	if cd != nil {
		<-cd.done
	}
}

func (s *Session) requireInProgress() error {
	switch {
	case s.disposed:
		return ErrDisposed
	case s.state == StateNotStarted:
		return ErrNotStarted
	case s.state == StateCompleted:
		return ErrSessionCompleted
	}
	return nil
}

func (s *Session) flaggedIndices() []int {
	out := make([]int, 0, len(s.flagged))
	for i := range s.flagged {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (s *Session) touch() {
	s.lastActivity = time.Now()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// countdown is the background ticker owned by an in-progress session
type countdown struct {
	cancel context.CancelFunc
	ctx    context.Context
	done   chan struct{}
}

func startCountdown(s *Session, interval time.Duration) *countdown {
	ctx, cancel := context.WithCancel(context.Background())
	cd := &countdown{cancel: cancel, ctx: ctx, done: make(chan struct{})}

	go func() {
		defer close(cd.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				// cancellation happens under the lock, so a tick that lost
				// the race is dropped here
				if ctx.Err() != nil {
					s.mu.Unlock()
					return
				}
				attempt, done := s.tickLocked()
				s.mu.Unlock()
				if done {
					s.finish(attempt)
					return
				}
			}
		}
	}()
	return cd
}

// stopCountdown cancels without waiting; callers hold s.mu
func (s *Session) stopCountdown() {
	if s.countdown == nil {
		return
	}
	s.countdown.cancel()
	s.countdown = nil
}
