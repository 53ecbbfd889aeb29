package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/elec-mate/elecmate-engine/internal/forms"
	"github.com/elec-mate/elecmate-engine/internal/models"
)

var ErrDraftNotFound = errors.New("draft not found")

// Draft is the persisted form of a session between requests
type Draft struct {
	ID         string            `json:"id"`
	TemplateID string            `json:"template_id"`
	Data       map[string]string `json:"data"`
	Errors     forms.Errors      `json:"errors,omitempty"`
	Completed  bool              `json:"completed"`
	DocumentID string            `json:"document_id,omitempty"`
	FileName   string            `json:"file_name,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Snapshot captures the session as a draft. In-flight generation is not
// part of the draft.
func (s *Session) Snapshot() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := Draft{
		ID:         s.id,
		TemplateID: s.template.ID,
		Data:       make(map[string]string, len(s.data)),
		Errors:     make(forms.Errors, len(s.errors)),
		Completed:  s.completed,
		UpdatedAt:  s.updatedAt,
	}
	for k, v := range s.data {
		d.Data[k] = forms.Stringify(v)
	}
	for k, v := range s.errors {
		d.Errors[k] = v
	}
	if s.document != nil {
		d.DocumentID = s.document.ID
		d.FileName = s.document.FileName
	}
	return d
}

// Restore rebuilds a session from a draft of tmpl
func Restore(d Draft, tmpl *models.DocumentTemplate, backend Backend, notifier Notifier) (*Session, error) {
	if d.TemplateID != tmpl.ID {
		return nil, fmt.Errorf("draft %s belongs to template %s, not %s", d.ID, d.TemplateID, tmpl.ID)
	}

	s := NewSession(tmpl, backend, notifier)
	s.id = d.ID
	s.completed = d.Completed
	s.updatedAt = d.UpdatedAt
	for k, v := range d.Data {
		if _, ok := tmpl.Field(k); ok {
			s.data[k] = v
		}
	}
	for k, v := range d.Errors {
		s.errors[k] = v
	}
	if d.DocumentID != "" {
		s.document = &models.GeneratedDocument{ID: d.DocumentID, TemplateID: d.TemplateID, FileName: d.FileName}
	}
	return s, nil
}

// DraftStore keeps drafts between requests
type DraftStore interface {
	Save(ctx context.Context, d Draft) error
	Load(ctx context.Context, id string) (Draft, error)
	Delete(ctx context.Context, id string) error
}

// MemoryDraftStore is a DraftStore for single-instance deployments and tests
type MemoryDraftStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	drafts map[string]memoryDraft
	now    func() time.Time
}

type memoryDraft struct {
	draft   Draft
	expires time.Time
}

// NewMemoryDraftStore creates a store that forgets drafts after ttl
func NewMemoryDraftStore(ttl time.Duration) *MemoryDraftStore {
	return &MemoryDraftStore{ttl: ttl, drafts: make(map[string]memoryDraft), now: time.Now}
}

func (m *MemoryDraftStore) Save(_ context.Context, d Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[d.ID] = memoryDraft{draft: d, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryDraftStore) Load(_ context.Context, id string) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	md, ok := m.drafts[id]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	if m.ttl > 0 && m.now().After(md.expires) {
		delete(m.drafts, id)
		return Draft{}, ErrDraftNotFound
	}
	return md.draft, nil
}

func (m *MemoryDraftStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, id)
	return nil
}

// DraftKeyPrefix namespaces generator drafts in Redis
const DraftKeyPrefix = "elecmate:draft:"

// RedisDraftStore keeps drafts in Redis with a sliding TTL
type RedisDraftStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisDraftStore creates a Redis-backed draft store
func NewRedisDraftStore(client redis.Cmdable, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{client: client, ttl: ttl}
}

func (r *RedisDraftStore) Save(ctx context.Context, d Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	if err := r.client.Set(ctx, DraftKeyPrefix+d.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (r *RedisDraftStore) Load(ctx context.Context, id string) (Draft, error) {
	data, err := r.client.Get(ctx, DraftKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Draft{}, ErrDraftNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("failed to load draft: %w", err)
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, fmt.Errorf("failed to decode draft: %w", err)
	}
	return d, nil
}

func (r *RedisDraftStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, DraftKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
