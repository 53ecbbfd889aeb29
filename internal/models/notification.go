package models

import "time"

// NotificationStatus tracks a Part P / Building Control notification
type NotificationStatus string

const (
	NotificationDraft     NotificationStatus = "draft"
	NotificationPending   NotificationStatus = "pending"
	NotificationSubmitted NotificationStatus = "submitted"
	NotificationApproved  NotificationStatus = "approved"
	NotificationRejected  NotificationStatus = "rejected"
)

// Valid reports whether s is a known status
func (s NotificationStatus) Valid() bool {
	switch s {
	case NotificationDraft, NotificationPending, NotificationSubmitted, NotificationApproved, NotificationRejected:
		return true
	}
	return false
}

// NotificationWindow is how long after completion notifiable work must be reported
const NotificationWindow = 30 * 24 * time.Hour

// Notification is a notifiable-work record for Building Control
type Notification struct {
	ID                  string             `json:"id"`
	JobReference        string             `json:"job_reference"`
	PropertyAddress     string             `json:"property_address"`
	Postcode            string             `json:"postcode"`
	WorkType            string             `json:"work_type"`
	CompletionDate      time.Time          `json:"completion_date"`
	SubmissionDeadline  time.Time          `json:"submission_deadline"`
	Status              NotificationStatus `json:"status"`
	BuildingControlBody string             `json:"building_control_body,omitempty"`
	CertificateNumber   string             `json:"certificate_number,omitempty"`
	Notes               string             `json:"notes,omitempty"`
	SubmittedAt         *time.Time         `json:"submitted_at,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// IsOverdue reports whether the deadline passed before the work was notified
func (n *Notification) IsOverdue(now time.Time) bool {
	switch n.Status {
	case NotificationSubmitted, NotificationApproved:
		return false
	}
	return now.After(n.SubmissionDeadline)
}

// NotificationPatch carries the fields an update may change; nil means unchanged
type NotificationPatch struct {
	JobReference        *string             `json:"job_reference,omitempty"`
	PropertyAddress     *string             `json:"property_address,omitempty"`
	Postcode            *string             `json:"postcode,omitempty"`
	WorkType            *string             `json:"work_type,omitempty"`
	CompletionDate      *time.Time          `json:"completion_date,omitempty"`
	Status              *NotificationStatus `json:"status,omitempty"`
	BuildingControlBody *string             `json:"building_control_body,omitempty"`
	CertificateNumber   *string             `json:"certificate_number,omitempty"`
	Notes               *string             `json:"notes,omitempty"`
}

// NotificationFilters narrows a notification listing
type NotificationFilters struct {
	Status  NotificationStatus
	Overdue bool
	Limit   int
	Offset  int
}

// CreateNotificationRequest is the payload for a new notification
type CreateNotificationRequest struct {
	JobReference        string    `json:"job_reference"`
	PropertyAddress     string    `json:"property_address"`
	Postcode            string    `json:"postcode"`
	WorkType            string    `json:"work_type"`
	CompletionDate      time.Time `json:"completion_date"`
	BuildingControlBody string    `json:"building_control_body,omitempty"`
	CertificateNumber   string    `json:"certificate_number,omitempty"`
	Notes               string    `json:"notes,omitempty"`
}
