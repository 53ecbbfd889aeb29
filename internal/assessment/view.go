package assessment

// QuestionView is one question as a client sees it. The answer key is only
// filled in once the exam is submitted.
type QuestionView struct {
	Index         int      `json:"index"`
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	Section       string   `json:"section,omitempty"`
	Topic         string   `json:"topic,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
	Selected      *int     `json:"selected,omitempty"`
	Flagged       bool     `json:"flagged"`
	CorrectAnswer *int     `json:"correctAnswer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	Outcome       Outcome  `json:"outcome,omitempty"`
}

// Snapshot is the serialisable state of a session
type Snapshot struct {
	ID            string         `json:"id"`
	ExamID        string         `json:"examId"`
	State         State          `json:"state"`
	Reviewing     bool           `json:"reviewing"`
	Filter        ReviewFilter   `json:"filter,omitempty"`
	CurrentIndex  int            `json:"currentIndex"`
	Total         int            `json:"total"`
	Answered      int            `json:"answered"`
	Flagged       []int          `json:"flagged"`
	TimeRemaining int            `json:"timeRemaining"`
	TimedOut      bool           `json:"timedOut"`
	SubmitEnabled bool           `json:"submitEnabled"`
	Current       *QuestionView  `json:"current,omitempty"`
	Score         *Score         `json:"score,omitempty"`
	Questions     []QuestionView `json:"questions,omitempty"`
}

// Snapshot captures the session. In progress it carries only the current
// question; in review it carries the filtered list with answers.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:            s.id,
		ExamID:        s.cfg.ExamID,
		State:         s.state,
		Reviewing:     s.reviewing,
		CurrentIndex:  s.current,
		Total:         len(s.questions),
		Answered:      len(s.answers),
		Flagged:       s.flaggedIndices(),
		TimeRemaining: s.remaining,
		TimedOut:      s.timedOut,
		SubmitEnabled: s.submitEnabledLocked(),
	}

	switch s.state {
	case StateInProgress:
		q := s.questionView(s.current, false)
		snap.Current = &q
	case StateCompleted:
		score := s.scoreLocked()
		snap.Score = &score
		if s.reviewing {
			snap.Filter = s.filter
			for _, i := range s.visibleLocked() {
				snap.Questions = append(snap.Questions, s.questionView(i, true))
			}
		}
	}
	return snap
}

func (s *Session) questionView(i int, reveal bool) QuestionView {
	q := s.questions[i]
	v := QuestionView{
		Index:      i,
		ID:         q.ID,
		Question:   q.Question,
		Options:    q.Options,
		Section:    q.Section,
		Topic:      q.Topic,
		Difficulty: string(q.Difficulty),
		Flagged:    s.flagged[i],
	}
	if a, ok := s.answers[i]; ok {
		v.Selected = &a
	}
	if reveal {
		correct := q.CorrectAnswer
		v.CorrectAnswer = &correct
		v.Explanation = q.Explanation
		v.Outcome = s.classifyLocked(i)
	}
	return v
}
