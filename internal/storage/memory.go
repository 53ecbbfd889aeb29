package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/elec-mate/elecmate-engine/internal/models"
)

// MemoryRepository is an in-process Repository used when no database is
// configured and by package tests
type MemoryRepository struct {
	mu            sync.RWMutex
	documents     map[string]*models.GeneratedDocument
	notifications map[string]*models.Notification
	attempts      []*models.ExamAttempt
	clients       map[string]*models.ApiClient
	now           func() time.Time
}

// NewMemoryRepository creates an empty repository seeded with clients
func NewMemoryRepository(clients ...*models.ApiClient) *MemoryRepository {
	r := &MemoryRepository{
		documents:     make(map[string]*models.GeneratedDocument),
		notifications: make(map[string]*models.Notification),
		clients:       make(map[string]*models.ApiClient),
		now:           time.Now,
	}
	for _, c := range clients {
		r.clients[c.ApiKey] = c
	}
	return r
}

func (r *MemoryRepository) CreateDocument(_ context.Context, doc *models.GeneratedDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *doc
	r.documents[doc.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetDocument(_ context.Context, id string) (*models.GeneratedDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (r *MemoryRepository) ListDocuments(_ context.Context, filters models.DocumentFilters) ([]*models.GeneratedDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.GeneratedDocument
	for _, doc := range r.documents {
		if filters.TemplateID != "" && doc.TemplateID != filters.TemplateID {
			continue
		}
		cp := *doc
		cp.Content = nil
		cp.Data = nil
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filters.Limit, filters.Offset), nil
}

func (r *MemoryRepository) CreateNotification(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.notifications[n.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetNotification(_ context.Context, id string) (*models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *MemoryRepository) UpdateNotification(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notifications[n.ID]; !ok {
		return ErrNotFound
	}
	cp := *n
	r.notifications[n.ID] = &cp
	return nil
}

func (r *MemoryRepository) DeleteNotification(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notifications[id]; !ok {
		return ErrNotFound
	}
	delete(r.notifications, id)
	return nil
}

func (r *MemoryRepository) ListNotifications(_ context.Context, filters models.NotificationFilters) ([]*models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	var out []*models.Notification
	for _, n := range r.notifications {
		if filters.Status != "" && n.Status != filters.Status {
			continue
		}
		if filters.Overdue && !n.IsOverdue(now) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmissionDeadline.Equal(out[j].SubmissionDeadline) {
			return out[i].SubmissionDeadline.Before(out[j].SubmissionDeadline)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, filters.Limit, filters.Offset), nil
}

func (r *MemoryRepository) SaveAttempt(_ context.Context, a *models.ExamAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.attempts = append(r.attempts, &cp)
	return nil
}

func (r *MemoryRepository) ListAttempts(_ context.Context, examID string, limit int) ([]*models.ExamAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.ExamAttempt
	for i := len(r.attempts) - 1; i >= 0; i-- {
		if r.attempts[i].ExamID == examID {
			cp := *r.attempts[i]
			out = append(out, &cp)
		}
	}
	return page(out, limit, 0), nil
}

func (r *MemoryRepository) GetClientByApiKey(_ context.Context, apiKey string) (*models.ApiClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[apiKey]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryRepository) UpdateClientLastUsed(_ context.Context, apiKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[apiKey]; ok {
		now := r.now()
		c.LastUsedAt = &now
	}
	return nil
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }
func (r *MemoryRepository) Close() error               { return nil }

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
