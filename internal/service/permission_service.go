package service

import (
	"context"

	"github.com/moon4656/skyboot-core/internal/domain"
	"github.com/moon4656/skyboot-core/internal/repository"
)

// PermissionService evaluates menu-level permissions for a session.
// The group_id claim is used as the author code.
type PermissionService interface {
	// Allow reports whether the session may perform kind on menuNo.
	// A session without a group evaluates to false for every check.
	Allow(ctx context.Context, session *domain.SessionClaims, menuNo string, kind domain.PermissionKind) (bool, error)
	// List returns the session's active menu grants
	List(ctx context.Context, session *domain.SessionClaims) ([]domain.MenuPermission, error)
}

type permissionService struct {
	perms repository.PermissionStore
}

// NewPermissionService creates a PermissionService
func NewPermissionService(perms repository.PermissionStore) PermissionService {
	return &permissionService{perms: perms}
}

func (s *permissionService) Allow(ctx context.Context, session *domain.SessionClaims, menuNo string, kind domain.PermissionKind) (bool, error) {
	if session == nil || session.GroupID == "" {
		return false, nil
	}
	return s.perms.Check(ctx, session.GroupID, menuNo, kind)
}

func (s *permissionService) List(ctx context.Context, session *domain.SessionClaims) ([]domain.MenuPermission, error) {
	if session == nil || session.GroupID == "" {
		return nil, nil
	}
	return s.perms.PermissionsFor(ctx, session.GroupID)
}
