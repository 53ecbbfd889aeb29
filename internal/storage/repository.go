package storage

import (
	"context"
	"errors"

	"github.com/elec-mate/elecmate-engine/internal/models"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// Repository defines the interface for engine persistence
type Repository interface {
	// Generated documents
	CreateDocument(ctx context.Context, doc *models.GeneratedDocument) error
	GetDocument(ctx context.Context, id string) (*models.GeneratedDocument, error)
	ListDocuments(ctx context.Context, filters models.DocumentFilters) ([]*models.GeneratedDocument, error)

	// Part P notifications
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	UpdateNotification(ctx context.Context, n *models.Notification) error
	DeleteNotification(ctx context.Context, id string) error
	ListNotifications(ctx context.Context, filters models.NotificationFilters) ([]*models.Notification, error)

	// Exam attempts
	SaveAttempt(ctx context.Context, attempt *models.ExamAttempt) error
	ListAttempts(ctx context.Context, examID string, limit int) ([]*models.ExamAttempt, error)

	// API Clients
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
