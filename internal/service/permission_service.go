package service

import (
	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/pkg/apperror"
)

// PermissionService implements ports.PermissionEvaluator over a static
// capability table. It holds no per-request state.
type PermissionService struct {
	caps *domain.Capabilities
}

// NewPermissionService creates an evaluator. A nil table selects the default one.
func NewPermissionService(caps *domain.Capabilities) *PermissionService {
	if caps == nil {
		caps = domain.DefaultCapabilities()
	}
	return &PermissionService{caps: caps}
}

// Allow is the pure permission check.
func (s *PermissionService) Allow(role domain.Role, resource domain.Resource, action domain.Action) bool {
	return s.caps.Allows(role, resource, action)
}

// AllowAll is the conjunction of Allow over perms, stopping at the first deny.
func (s *PermissionService) AllowAll(role domain.Role, perms ...domain.Permission) bool {
	for _, p := range perms {
		if !s.caps.Allows(role, p.Resource, p.Action) {
			return false
		}
	}
	return true
}

// Authorize checks the approval gate before the capability table so a
// pending account learns it is pending, not forbidden.
func (s *PermissionService) Authorize(p domain.Principal, resource domain.Resource, action domain.Action) error {
	if p.NeedsApproval() && !(resource == domain.ResourceProfile && action == domain.ActionRead) {
		return apperror.ErrPendingApproval()
	}
	if !s.caps.Allows(p.Role, resource, action) {
		return apperror.ErrForbidden()
	}
	return nil
}
