package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elec-mate/elecmate-engine/internal/forms"
	"github.com/elec-mate/elecmate-engine/internal/models"
)

var ErrInvalidNotification = errors.New("invalid notification")

// Store persists notifications
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	UpdateNotification(ctx context.Context, n *models.Notification) error
	DeleteNotification(ctx context.Context, id string) error
	ListNotifications(ctx context.Context, filters models.NotificationFilters) ([]*models.Notification, error)
}

// ValidationError lists the fields that failed validation
type ValidationError struct {
	Fields forms.Errors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %d field(s) failed validation", ErrInvalidNotification, len(e.Fields))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidNotification }

var notificationFields = []forms.Field{
	{Name: "job_reference", Label: "Job Reference", Kind: forms.Text{}, Required: true},
	{Name: "property_address", Label: "Property Address", Kind: forms.Textarea{}, Required: true},
	{Name: "postcode", Label: "Postcode", Kind: forms.Postcode{}, Required: true},
	{Name: "work_type", Label: "Work Type", Kind: forms.Text{}, Required: true},
	{Name: "completion_date", Label: "Completion Date", Kind: forms.Date{}, Required: true},
}

// Service manages Part P notifications
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a notification service
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// List returns notifications matching filters
func (s *Service) List(ctx context.Context, filters models.NotificationFilters) ([]*models.Notification, error) {
	return s.store.ListNotifications(ctx, filters)
}

// Get returns one notification
func (s *Service) Get(ctx context.Context, id string) (*models.Notification, error) {
	return s.store.GetNotification(ctx, id)
}

// Create validates and stores a new draft notification
func (s *Service) Create(ctx context.Context, req models.CreateNotificationRequest) (*models.Notification, error) {
	now := s.now()
	n := &models.Notification{
		ID:                  uuid.New().String(),
		JobReference:        strings.TrimSpace(req.JobReference),
		PropertyAddress:     strings.TrimSpace(req.PropertyAddress),
		Postcode:            strings.ToUpper(strings.TrimSpace(req.Postcode)),
		WorkType:            strings.TrimSpace(req.WorkType),
		CompletionDate:      req.CompletionDate,
		Status:              models.NotificationDraft,
		BuildingControlBody: req.BuildingControlBody,
		CertificateNumber:   req.CertificateNumber,
		Notes:               req.Notes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	n.SubmissionDeadline = Deadline(n.CompletionDate)

	if err := validate(n); err != nil {
		return nil, err
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, err
	}

	slog.Info("notification created", "notification_id", n.ID, "job_reference", n.JobReference, "deadline", n.SubmissionDeadline)
	return n, nil
}

// Update applies patch. Moving to submitted stamps SubmittedAt.
func (s *Service) Update(ctx context.Context, id string, patch models.NotificationPatch) (*models.Notification, error) {
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.JobReference != nil {
		n.JobReference = strings.TrimSpace(*patch.JobReference)
	}
	if patch.PropertyAddress != nil {
		n.PropertyAddress = strings.TrimSpace(*patch.PropertyAddress)
	}
	if patch.Postcode != nil {
		n.Postcode = strings.ToUpper(strings.TrimSpace(*patch.Postcode))
	}
	if patch.WorkType != nil {
		n.WorkType = strings.TrimSpace(*patch.WorkType)
	}
	if patch.CompletionDate != nil {
		n.CompletionDate = *patch.CompletionDate
		n.SubmissionDeadline = Deadline(n.CompletionDate)
	}
	if patch.BuildingControlBody != nil {
		n.BuildingControlBody = *patch.BuildingControlBody
	}
	if patch.CertificateNumber != nil {
		n.CertificateNumber = *patch.CertificateNumber
	}
	if patch.Notes != nil {
		n.Notes = *patch.Notes
	}

	now := s.now()
	if patch.Status != nil {
		if *patch.Status == models.NotificationSubmitted && n.Status != models.NotificationSubmitted {
			n.SubmittedAt = &now
		}
		n.Status = *patch.Status
	}
	n.UpdatedAt = now

	if err := validate(n); err != nil {
		return nil, err
	}
	if err := s.store.UpdateNotification(ctx, n); err != nil {
		return nil, err
	}

	slog.Info("notification updated", "notification_id", n.ID, "status", n.Status)
	return n, nil
}

// Delete removes a notification
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteNotification(ctx, id); err != nil {
		return err
	}
	slog.Info("notification deleted", "notification_id", id)
	return nil
}

// Deadline is the last day to notify Building Control of completed work
func Deadline(completion time.Time) time.Time {
	return completion.Add(models.NotificationWindow)
}

func validate(n *models.Notification) error {
	data := forms.FormData{
		"job_reference":    n.JobReference,
		"property_address": n.PropertyAddress,
		"postcode":         n.Postcode,
		"work_type":        n.WorkType,
		"completion_date":  n.CompletionDate,
	}
	errs := forms.ValidateAll(notificationFields, data)
	if !n.Status.Valid() {
		errs["status"] = fmt.Sprintf("Unknown status %q", n.Status)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
