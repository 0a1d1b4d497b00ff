package domain

import (
	"time"
)

// StatusCode represents the account status of a user
type StatusCode string

const (
	StatusActive   StatusCode = "A"
	StatusLocked   StatusCode = "L"
	StatusDisabled StatusCode = "D"
	StatusPending  StatusCode = "P"
)

// User represents a back-office user account. user_id is the primary key
// and is at most 20 characters in the backing schema.
type User struct {
	UserID              string     `json:"user_id"`
	DisplayName         string     `json:"display_name"`
	Email               string     `json:"email,omitempty"`
	GroupID             string     `json:"group_id,omitempty"`
	OrgID               string     `json:"org_id,omitempty"`
	StatusCode          StatusCode `json:"status_code"`
	PasswordHash        string     `json:"-"` // never serialized
	LockCount           int        `json:"lock_count"`
	LockLastTime        *time.Time `json:"lock_last_time,omitempty"`
	PasswordChangedTime *time.Time `json:"password_changed_time,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
}

// IsActive reports whether the account may receive tokens
func (u *User) IsActive() bool {
	return u.StatusCode == StatusActive
}

// SessionClaims is the per-request identity derived from a verified access
// token. Immutable after the guard binds it to the request.
type SessionClaims struct {
	UserID          string    `json:"user_id"`
	Email           string    `json:"email,omitempty"`
	GroupID         string    `json:"group_id,omitempty"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
}
