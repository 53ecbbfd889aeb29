package assessment

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownFilter = errors.New("unknown review filter")
	ErrNotReviewing  = errors.New("review mode not active")
)

// Outcome is the three-way classification of an answered question
type Outcome string

const (
	OutcomeCorrect    Outcome = "correct"
	OutcomeIncorrect  Outcome = "incorrect"
	OutcomeUnanswered Outcome = "unanswered"
)

// ReviewFilter narrows the question list on the review screen
type ReviewFilter string

const (
	FilterAll        ReviewFilter = "all"
	FilterCorrect    ReviewFilter = "correct"
	FilterIncorrect  ReviewFilter = "incorrect"
	FilterUnanswered ReviewFilter = "unanswered"
	FilterFlagged    ReviewFilter = "flagged"
)

// Valid reports whether f is one of the five review filters
func (f ReviewFilter) Valid() bool {
	switch f {
	case FilterAll, FilterCorrect, FilterIncorrect, FilterUnanswered, FilterFlagged:
		return true
	}
	return false
}

// ParseReviewFilter maps an empty string to FilterAll
func ParseReviewFilter(s string) (ReviewFilter, error) {
	f := ReviewFilter(s)
	if f == "" {
		return FilterAll, nil
	}
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFilter, s)
	}
	return f, nil
}

// EnterReview switches a completed session into the read-only review mode
func (s *Session) EnterReview() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCompleted {
		return ErrNotCompleted
	}
	s.reviewing = true
	s.touch()
	return nil
}

// ExitReview leaves review mode and resets the filter
func (s *Session) ExitReview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviewing = false
	s.filter = FilterAll
}

// Reviewing reports whether review mode is active
func (s *Session) Reviewing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reviewing
}

// Classify returns the outcome for question i and whether it was flagged
func (s *Session) Classify(i int) (Outcome, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCompleted {
		return "", false, ErrNotCompleted
	}
	if i < 0 || i >= len(s.questions) {
		return "", false, ErrInvalidIndex
	}
	return s.classifyLocked(i), s.flagged[i], nil
}

func (s *Session) classifyLocked(i int) Outcome {
	a, ok := s.answers[i]
	switch {
	case !ok:
		return OutcomeUnanswered
	case a == s.questions[i].CorrectAnswer:
		return OutcomeCorrect
	default:
		return OutcomeIncorrect
	}
}

// SelectFilter applies f, or restores FilterAll when f is already active
func (s *Session) SelectFilter(f ReviewFilter) (ReviewFilter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireReviewing(); err != nil {
		return s.filter, err
	}
	if !f.Valid() {
		return s.filter, fmt.Errorf("%w: %q", ErrUnknownFilter, f)
	}
	if s.filter == f {
		s.filter = FilterAll
	} else {
		s.filter = f
	}
	s.touch()
	return s.filter, nil
}

// SetFilter applies f without toggling
func (s *Session) SetFilter(f ReviewFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireReviewing(); err != nil {
		return err
	}
	if !f.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownFilter, f)
	}
	s.filter = f
	return nil
}

// Filter returns the active review filter
func (s *Session) Filter() ReviewFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Visible returns the question indices matching the active filter
func (s *Session) Visible() ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireReviewing(); err != nil {
		return nil, err
	}
	return s.visibleLocked(), nil
}

func (s *Session) visibleLocked() []int {
	out := make([]int, 0, len(s.questions))
	for i := range s.questions {
		if s.matchesLocked(i) {
			out = append(out, i)
		}
	}
	return out
}

func (s *Session) matchesLocked(i int) bool {
	switch s.filter {
	case FilterAll:
		return true
	case FilterFlagged:
		return s.flagged[i]
	default:
		return Outcome(s.filter) == s.classifyLocked(i)
	}
}

func (s *Session) requireReviewing() error {
	if s.state != StateCompleted {
		return ErrNotCompleted
	}
	if !s.reviewing {
		return ErrNotReviewing
	}
	return nil
}
