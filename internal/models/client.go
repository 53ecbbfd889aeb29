package models

import (
	"strings"
	"time"
)

// Permission scopes used by the API
const (
	PermTemplatesRead      = "templates:read"
	PermDocumentsRead      = "documents:read"
	PermDocumentsWrite     = "documents:write"
	PermExamsRead          = "exams:read"
	PermExamsWrite         = "exams:write"
	PermNotificationsRead  = "notifications:read"
	PermNotificationsWrite = "notifications:write"
)

// ApiClient is a caller identified by an API key, e.g. the Elec-Mate web app
type ApiClient struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	ApiKey      string     `json:"-"`
	IsActive    bool       `json:"is_active"`
	Permissions []string   `json:"permissions"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
}

// HasPermission reports whether the client holds scope. "documents:*" grants
// every documents scope and "*" grants everything.
func (c *ApiClient) HasPermission(scope string) bool {
	if c == nil || !c.IsActive {
		return false
	}
	resource, _, _ := strings.Cut(scope, ":")
	for _, p := range c.Permissions {
		if p == "*" || p == scope || p == resource+":*" {
			return true
		}
	}
	return false
}

// KeyPrefix is the loggable part of the key
func (c *ApiClient) KeyPrefix() string {
	return MaskKey(c.ApiKey)
}

// MaskKey keeps the first 8 characters of an API key
func MaskKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:8] + "..."
}
