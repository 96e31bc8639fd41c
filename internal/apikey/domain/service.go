package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Permissions the dialer API understands.
const (
	PermissionDialerRead  = "dialer:read"
	PermissionDialerWrite = "dialer:write"
	PermissionDialerCall  = "dialer:call"
)

// AllPermissions lists every grantable permission.
var AllPermissions = []string{
	PermissionDialerRead,
	PermissionDialerWrite,
	PermissionDialerCall,
}

// ValidPermission reports whether p is a known permission.
func ValidPermission(p string) bool {
	for _, known := range AllPermissions {
		if p == known {
			return true
		}
	}
	return false
}

type CreateRequest struct {
	Name        string     `json:"name"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

type UpdateRequest struct {
	Name        *string    `json:"name"`
	Permissions []string   `json:"permissions"`
	IsActive    *bool      `json:"isActive"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

// SecretResponse carries the plaintext key; it is returned exactly once,
// at creation time.
type SecretResponse struct {
	Key       APIKey `json:"key"`
	PlainText string `json:"plainTextKey"`
}

type KeyDetail struct {
	Key  APIKey   `json:"key"`
	Logs []APILog `json:"logs"`
}

type LogEntry struct {
	APIKeyID       snowflake.ID
	Endpoint       string
	Method         string
	StatusCode     int
	IPAddress      string
	UserAgent      string
	ResponseTimeMs int64
}

type Service interface {
	Create(context.Context, CreateRequest) (SecretResponse, error)
	List(context.Context) ([]APIKey, error)
	Get(ctx context.Context, id string) (KeyDetail, error)
	Update(ctx context.Context, id string, req UpdateRequest) (APIKey, error)
	Delete(ctx context.Context, id string) error

	// Validate authenticates a raw key against a required permission and
	// schedules the fire-and-forget usage bump on success.
	Validate(ctx context.Context, rawKey, permission string) (*APIKey, error)

	// LogCall records one authenticated request. Best effort; failures
	// are logged and never returned.
	LogCall(ctx context.Context, entry LogEntry)
}

var (
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("not_found")
	ErrMissingKey     = errors.New("api_key_missing")
	ErrUnknownKey     = errors.New("api_key_unknown")
	ErrInactiveKey    = errors.New("api_key_inactive")
	ErrExpiredKey     = errors.New("api_key_expired")
	ErrNoPermission   = errors.New("api_key_permission_denied")
	ErrBadPermissions = errors.New("invalid_permissions")
)

// PermissionError wraps ErrNoPermission with the permission that was
// required, so the auth response can name it.
type PermissionError struct {
	Permission string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("api_key_permission_denied: missing %s", e.Permission)
}

func (e *PermissionError) Unwrap() error { return ErrNoPermission }
