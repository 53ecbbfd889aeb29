package models

import "time"

// GeneratedDocument is a rendered document produced from a template
type GeneratedDocument struct {
	ID         string            `json:"id"`
	TemplateID string            `json:"template_id"`
	FileName   string            `json:"file_name"`
	MimeType   string            `json:"mime_type"`
	Size       int64             `json:"size"`
	Data       map[string]string `json:"data,omitempty"`
	Content    []byte            `json:"-"`
	CreatedAt  time.Time         `json:"created_at"`
}

// DocumentFilters narrows a generated document listing
type DocumentFilters struct {
	TemplateID string
	Limit      int
	Offset     int
}

// ExamAttempt is the persisted result of a completed exam session
type ExamAttempt struct {
	ID          string      `json:"id"`
	ExamID      string      `json:"exam_id"`
	SessionID   string      `json:"session_id"`
	Correct     int         `json:"correct"`
	Total       int         `json:"total"`
	Percentage  int         `json:"percentage"`
	Passed      bool        `json:"passed"`
	Answered    int         `json:"answered"`
	Flagged     int         `json:"flagged"`
	TimedOut    bool        `json:"timed_out"`
	Answers     map[int]int `json:"answers"`
	QuestionIDs []int       `json:"question_ids"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt time.Time   `json:"completed_at"`
}
