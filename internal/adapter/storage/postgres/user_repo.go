package postgres

import (
	"context"
	"errors"
	"fmt"

	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, full_name, role, status, rejection_reason, approved_by, approved_at, created_at, updated_at`

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// GetByID fetches an account by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// UpdateStatus applies an admin status decision. approved_by and approved_at
// keep their previous value when the update leaves them nil.
func (r *UserRepo) UpdateStatus(ctx context.Context, id int64, update ports.UserStatusUpdate) (*domain.User, error) {
	query := `UPDATE users
		SET status = $1, rejection_reason = $2,
			approved_by = COALESCE($3, approved_by), approved_at = COALESCE($4, approved_at),
			updated_at = NOW()
		WHERE id = $5
		RETURNING ` + userColumns

	u, err := scanUser(r.pool.QueryRow(ctx, query,
		string(update.Status), update.RejectionReason, update.ApprovedBy, update.ApprovedAt, id,
	))
	if err != nil {
		return nil, fmt.Errorf("update user status: %w", err)
	}
	return u, nil
}

// UpdateRole changes the role of an account.
func (r *UserRepo) UpdateRole(ctx context.Context, id int64, role domain.Role) (*domain.User, error) {
	query := `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + userColumns

	u, err := scanUser(r.pool.QueryRow(ctx, query, string(role), id))
	if err != nil {
		return nil, fmt.Errorf("update user role: %w", err)
	}
	return u, nil
}

// scanUser returns nil, nil when the row does not exist.
func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.FullName, &u.Role, &u.Status,
		&u.RejectionReason, &u.ApprovedBy, &u.ApprovedAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}
