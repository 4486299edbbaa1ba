package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ebook-marketplace/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const credentialColumns = `id, user_id, api_key_encrypted, secret_key_encrypted, merchant_id, webhook_url,
		is_test_mode, is_active, last_tested_at, test_status, created_at, updated_at`

// CredentialRepo implements ports.CredentialRepository.
type CredentialRepo struct {
	pool Pool
}

// NewCredentialRepo creates a new CredentialRepo.
func NewCredentialRepo(pool Pool) *CredentialRepo {
	return &CredentialRepo{pool: pool}
}

// GetByUser fetches the merchant's record whether or not it is active.
func (r *CredentialRepo) GetByUser(ctx context.Context, userID int64) (*domain.CredentialRecord, error) {
	query := `SELECT ` + credentialColumns + ` FROM payment_credentials WHERE user_id = $1`

	rec, err := scanCredential(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("get credentials by user: %w", err)
	}
	return rec, nil
}

// GetActiveByUser fetches the merchant's record only when it is active.
func (r *CredentialRepo) GetActiveByUser(ctx context.Context, userID int64) (*domain.CredentialRecord, error) {
	query := `SELECT ` + credentialColumns + ` FROM payment_credentials WHERE user_id = $1 AND is_active = TRUE`

	rec, err := scanCredential(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("get active credentials by user: %w", err)
	}
	return rec, nil
}

// Upsert writes the merchant's single record and re-activates it. The previous
// connection test result is kept; the caller re-tests after a change.
func (r *CredentialRepo) Upsert(ctx context.Context, rec *domain.CredentialRecord) error {
	query := `INSERT INTO payment_credentials (user_id, api_key_encrypted, secret_key_encrypted, merchant_id, webhook_url, is_test_mode, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (user_id) DO UPDATE
		SET api_key_encrypted = EXCLUDED.api_key_encrypted,
			secret_key_encrypted = EXCLUDED.secret_key_encrypted,
			merchant_id = EXCLUDED.merchant_id,
			webhook_url = EXCLUDED.webhook_url,
			is_test_mode = EXCLUDED.is_test_mode,
			is_active = TRUE,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, last_tested_at, test_status`

	err := r.pool.QueryRow(ctx, query,
		rec.UserID, rec.APIKeyEncrypted, rec.SecretKeyEncrypted,
		rec.MerchantID, rec.WebhookURL, rec.IsTestMode,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt, &rec.LastTestedAt, &rec.TestStatus)
	if err != nil {
		return fmt.Errorf("upsert credentials: %w", err)
	}
	rec.IsActive = true
	return nil
}

// Deactivate disables the record without deleting the sealed secrets.
func (r *CredentialRepo) Deactivate(ctx context.Context, userID int64) error {
	query := `UPDATE payment_credentials SET is_active = FALSE, updated_at = NOW() WHERE user_id = $1`

	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("deactivate credentials: %w", err)
	}
	return nil
}

// RecordTestResult stores the outcome of the last connection test.
func (r *CredentialRepo) RecordTestResult(ctx context.Context, userID int64, status string, testedAt time.Time) error {
	query := `UPDATE payment_credentials SET last_tested_at = $1, test_status = $2, updated_at = NOW() WHERE user_id = $3`

	if _, err := r.pool.Exec(ctx, query, testedAt, status, userID); err != nil {
		return fmt.Errorf("record credential test result: %w", err)
	}
	return nil
}

func scanCredential(row pgx.Row) (*domain.CredentialRecord, error) {
	rec := &domain.CredentialRecord{}
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.APIKeyEncrypted, &rec.SecretKeyEncrypted,
		&rec.MerchantID, &rec.WebhookURL, &rec.IsTestMode, &rec.IsActive,
		&rec.LastTestedAt, &rec.TestStatus, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}
