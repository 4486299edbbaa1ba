package postgres

import (
	"context"
	"fmt"

	"ebook-marketplace/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Create appends an audit entry. An empty details string is stored as NULL.
func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	query := `INSERT INTO audit_logs (user_id, action, resource_type, resource_id, details, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
		RETURNING id`

	var details *string
	if log.Details != "" {
		details = &log.Details
	}

	err := r.pool.QueryRow(ctx, query,
		log.UserID, string(log.Action), log.ResourceType, log.ResourceID,
		details, log.IPAddress, log.CreatedAt,
	).Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
