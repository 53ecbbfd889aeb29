package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elec-mate/elecmate-engine/internal/documents"
	"github.com/elec-mate/elecmate-engine/internal/forms"
	"github.com/elec-mate/elecmate-engine/internal/models"
)

var (
	ErrValidationFailed     = errors.New("form has invalid fields")
	ErrGenerationInProgress = errors.New("document generation already in progress")
	ErrUnknownField         = errors.New("unknown field")
	ErrSessionClosed        = errors.New("generator session closed")
)

const backendFailureMessage = "Failed to generate document. Please try again."

// Backend renders and stores a document
type Backend interface {
	GenerateDocument(ctx context.Context, templateID string, data forms.FormData) (*models.GeneratedDocument, error)
}

// Level is the tone of a user notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a dismissible message for the user
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier receives notices raised by a session
type Notifier interface {
	Notify(sessionID string, n Notice)
}

// Session owns the form lifecycle of one template
type Session struct {
	id       string
	template *models.DocumentTemplate
	backend  Backend
	notifier Notifier

	mu         sync.Mutex
	data       forms.FormData
	errors     forms.Errors
	generating bool
	completed  bool
	closed     bool
	document   *models.GeneratedDocument
	notice     *Notice
	updatedAt  time.Time
}

// NewSession creates an empty form for tmpl. notifier may be nil.
func NewSession(tmpl *models.DocumentTemplate, backend Backend, notifier Notifier) *Session {
	return &Session{
		id:        uuid.New().String(),
		template:  tmpl,
		backend:   backend,
		notifier:  notifier,
		data:      make(forms.FormData),
		errors:    make(forms.Errors),
		updatedAt: time.Now(),
	}
}

func (s *Session) ID() string                         { return s.id }
func (s *Session) Template() *models.DocumentTemplate { return s.template }

// SetField stores value for the named field and clears its error without
// re-validating. Postcodes are uppercased before storage.
func (s *Session) SetField(name string, value any) error {
	field, ok := s.template.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.data[name] = forms.Normalize(field, value)
	delete(s.errors, name)
	s.updatedAt = time.Now()
	return nil
}

// Generate validates every field and, when the form is clean, asks the
// backend for the document. Fields stay editable while the call runs.
func (s *Session) Generate(ctx context.Context) (*models.GeneratedDocument, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.generating {
		s.mu.Unlock()
		return nil, ErrGenerationInProgress
	}
	s.generating = true

	data := make(forms.FormData, len(s.data))
	for k, v := range s.data {
		data[k] = v
	}
	errs := forms.ValidateAll(s.template.Fields, data)
	s.errors = errs
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.generating = false
		s.updatedAt = time.Now()
		s.mu.Unlock()
	}()

	if len(errs) > 0 {
		s.raise(Notice{Level: LevelError, Message: fmt.Sprintf("Please fix %d field(s) before generating", len(errs))})
		return nil, fmt.Errorf("%w: %d field(s)", ErrValidationFailed, len(errs))
	}

	doc, err := s.backend.GenerateDocument(ctx, s.template.ID, data)
	if err != nil {
		slog.Error("document generation failed", "session_id", s.id, "template_id", s.template.ID, "error", err)
		s.raise(Notice{Level: LevelError, Message: backendFailureMessage})

		var genErr *documents.GenerationError
		if errors.As(err, &genErr) {
			return nil, genErr
		}
		return nil, &documents.GenerationError{TemplateID: s.template.ID, Err: err}
	}

	s.mu.Lock()
	s.completed = true
	s.document = doc
	s.data = make(forms.FormData)
	s.mu.Unlock()

	s.raise(Notice{Level: LevelSuccess, Message: doc.FileName + " generated successfully"})
	return doc, nil
}

func (s *Session) raise(n Notice) {
	s.mu.Lock()
	s.notice = &n
	s.mu.Unlock()
	if s.notifier != nil {
		s.notifier.Notify(s.id, n)
	}
}

// Notice returns the last notice raised, nil once dismissed
func (s *Session) Notice() *Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice == nil {
		return nil
	}
	n := *s.notice
	return &n
}

// DismissNotice clears the current notice
func (s *Session) DismissNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = nil
}

// Document is the last generated document, nil before the first success
func (s *Session) Document() *models.GeneratedDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}

// Generating reports whether a Generate call is in flight
func (s *Session) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

// Completed reports whether a document has been generated
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Errors returns a copy of the current validation errors
func (s *Session) Errors() forms.Errors {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(forms.Errors, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// Value returns the stored value of a field
func (s *Session) Value(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[name]
	return v, ok
}

// FieldView is a field ready to render
type FieldView struct {
	Field forms.Field `json:"field"`
	Value string      `json:"value,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Fields returns every field in declaration order with its value and error
func (s *Session) Fields() []FieldView {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]FieldView, 0, len(s.template.Fields))
	for _, f := range s.template.Fields {
		out = append(out, FieldView{
			Field: f,
			Value: forms.Stringify(s.data[f.Name]),
			Error: s.errors[f.Name],
		})
	}
	return out
}

// Close discards the form
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = make(forms.FormData)
	s.errors = make(forms.Errors)
}

// UpdatedAt is when the session last changed
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}
