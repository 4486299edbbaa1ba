package service

import (
	"context"
	"strings"
	"time"

	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"
	"ebook-marketplace/pkg/apperror"

	"github.com/rs/zerolog"
)

type userAdminService struct {
	userRepo ports.UserRepository
	log      zerolog.Logger
	now      func() time.Time
}

// NewUserAdminService creates the service behind admin account decisions.
func NewUserAdminService(userRepo ports.UserRepository, log zerolog.Logger) ports.UserAdminService {
	return &userAdminService{userRepo: userRepo, log: log, now: time.Now}
}

// Approve clears any previous rejection and stamps the approving admin.
func (s *userAdminService) Approve(ctx context.Context, admin domain.Principal, userID int64) (*domain.User, error) {
	if _, err := s.target(ctx, admin, userID); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return s.updateStatus(ctx, userID, ports.UserStatusUpdate{
		Status:     domain.UserStatusApproved,
		ApprovedBy: &admin.UserID,
		ApprovedAt: &now,
	})
}

func (s *userAdminService) Reject(ctx context.Context, admin domain.Principal, userID int64, reason string) (*domain.User, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.Validation("Rejection reason required")
	}
	if _, err := s.target(ctx, admin, userID); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return s.updateStatus(ctx, userID, ports.UserStatusUpdate{
		Status:          domain.UserStatusRejected,
		RejectionReason: &reason,
		ApprovedBy:      &admin.UserID,
		ApprovedAt:      &now,
	})
}

func (s *userAdminService) Suspend(ctx context.Context, admin domain.Principal, userID int64) (*domain.User, error) {
	if _, err := s.target(ctx, admin, userID); err != nil {
		return nil, err
	}
	return s.updateStatus(ctx, userID, ports.UserStatusUpdate{Status: domain.UserStatusSuspended})
}

// ChangeRole assigns one of the registered roles.
func (s *userAdminService) ChangeRole(ctx context.Context, admin domain.Principal, userID int64, role domain.Role) (*domain.User, error) {
	if !role.Assignable() {
		return nil, apperror.Validation("role must be one of pending, client, vendor, admin")
	}
	user, err := s.target(ctx, admin, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}

	updated, err := s.userRepo.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if updated == nil {
		return nil, apperror.ErrNotFound("User")
	}

	s.log.Info().
		Int64("admin_id", admin.UserID).
		Int64("user_id", userID).
		Str("from", string(user.Role)).
		Str("to", string(role)).
		Msg("user role changed")
	return updated, nil
}

// target loads the account an admin acts on. Admins may not act on themselves.
func (s *userAdminService) target(ctx context.Context, admin domain.Principal, userID int64) (*domain.User, error) {
	if userID == admin.UserID {
		return nil, apperror.Validation("Admins cannot change their own account")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if user == nil {
		return nil, apperror.ErrNotFound("User")
	}
	return user, nil
}

func (s *userAdminService) updateStatus(ctx context.Context, userID int64, update ports.UserStatusUpdate) (*domain.User, error) {
	user, err := s.userRepo.UpdateStatus(ctx, userID, update)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if user == nil {
		return nil, apperror.ErrNotFound("User")
	}
	s.log.Info().Int64("user_id", userID).Str("status", string(update.Status)).Msg("user status changed")
	return user, nil
}
