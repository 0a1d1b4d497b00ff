package repository

import (
	"context"

	"github.com/moon4656/skyboot-core/internal/domain"
)

// UserStore is the credential store seen by the auth service.
// Lookups return (nil, nil) when no row matches.
type UserStore interface {
	// GetByUserID retrieves a user by primary key
	GetByUserID(ctx context.Context, userID string) (*domain.User, error)
	// GetByEmail retrieves a user by email address
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// IncrementLock atomically bumps lock_count and returns the new value.
	// With threshold > 0, crossing it flips the account status to LOCKED
	// in the same statement.
	IncrementLock(ctx context.Context, userID string, threshold int) (int, error)
	// ResetLock zeroes lock_count
	ResetLock(ctx context.Context, userID string) error
	// UpdatePassword stores a new password hash and touches
	// password_changed_time
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	// TouchPasswordChanged updates password_changed_time only
	TouchPasswordChanged(ctx context.Context, userID string) error
}

// PermissionStore resolves menu grants for an author code.
// Inactive grants are never returned.
type PermissionStore interface {
	// PermissionsFor returns the active grants of an author code
	PermissionsFor(ctx context.Context, authorCode string) ([]domain.MenuPermission, error)
	// Check reports whether authorCode may perform kind on menuNo
	Check(ctx context.Context, authorCode, menuNo string, kind domain.PermissionKind) (bool, error)
}

// LoginLogStore appends login attempt records
type LoginLogStore interface {
	Append(ctx context.Context, entry *domain.LoginLogEntry) error
}

// APIUsageLogStore appends per-request usage records
type APIUsageLogStore interface {
	Append(ctx context.Context, entry *domain.APIUsageLogEntry) error
}
