package assessment

// EventType names a session state change pushed to subscribers
type EventType string

const (
	EventStarted   EventType = "started"
	EventTick      EventType = "tick"
	EventSubmitted EventType = "submitted"
)

// Event is a snapshot sent on every start, tick and submission
type Event struct {
	Type          EventType `json:"type"`
	State         State     `json:"state"`
	TimeRemaining int       `json:"timeRemaining"`
	TimedOut      bool      `json:"timedOut,omitempty"`
	Score         *Score    `json:"score,omitempty"`
}

const subscriberBuffer = 16

// Subscribe returns a channel of session events and a function that
// releases it. Events are dropped for subscribers that fall behind.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if s.disposed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

// publish fans out without blocking; callers hold s.mu
func (s *Session) publish(t EventType) {
	if len(s.subs) == 0 {
		return
	}
	ev := Event{Type: t, State: s.state, TimeRemaining: s.remaining, TimedOut: s.timedOut}
	if s.state == StateCompleted {
		score := s.scoreLocked()
		ev.Score = &score
	}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
