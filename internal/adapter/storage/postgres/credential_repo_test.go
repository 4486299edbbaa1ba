package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"ebook-marketplace/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func credentialColumnNames() []string {
	return []string{"id", "user_id", "api_key_encrypted", "secret_key_encrypted", "merchant_id", "webhook_url",
		"is_test_mode", "is_active", "last_tested_at", "test_status", "created_at", "updated_at"}
}

func newTestCredential() *domain.CredentialRecord {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.CredentialRecord{
		ID:                 3,
		UserID:             7,
		APIKeyEncrypted:    `{"iv":"aXY=","authTag":"dGFn","cipherText":"Y3Q="}`,
		SecretKeyEncrypted: `{"iv":"aXY=","authTag":"dGFn","cipherText":"c2s="}`,
		MerchantID:         strPtr("M-100"),
		WebhookURL:         strPtr("https://vendor.example.dz/hook"),
		IsTestMode:         true,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func credentialRow(c *domain.CredentialRecord) *pgxmock.Rows {
	return pgxmock.NewRows(credentialColumnNames()).AddRow(
		c.ID, c.UserID, c.APIKeyEncrypted, c.SecretKeyEncrypted,
		c.MerchantID, c.WebhookURL, c.IsTestMode, c.IsActive,
		c.LastTestedAt, c.TestStatus, c.CreatedAt, c.UpdatedAt,
	)
}

func TestCredentialRepo_GetByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCredentialRepo(mock)
	c := newTestCredential()

	mock.ExpectQuery("SELECT .+ FROM payment_credentials WHERE user_id = \\$1$").
		WithArgs(c.UserID).
		WillReturnRows(credentialRow(c))

	result, err := repo.GetByUser(context.Background(), c.UserID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, c.APIKeyEncrypted, result.APIKeyEncrypted)
	assert.Equal(t, "M-100", *result.MerchantID)
	assert.Nil(t, result.TestStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepo_GetActiveByUser_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCredentialRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM payment_credentials WHERE user_id = \\$1 AND is_active = TRUE").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(credentialColumnNames()))

	result, err := repo.GetActiveByUser(context.Background(), 7)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepo_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCredentialRepo(mock)
	rec := &domain.CredentialRecord{
		UserID:             7,
		APIKeyEncrypted:    "sealed-api",
		SecretKeyEncrypted: "sealed-secret",
		IsTestMode:         false,
	}
	created := time.Now().UTC().Truncate(time.Microsecond)
	tested := created.Add(-time.Hour)

	mock.ExpectQuery("INSERT INTO payment_credentials .+ ON CONFLICT \\(user_id\\) DO UPDATE").
		WithArgs(rec.UserID, "sealed-api", "sealed-secret", rec.MerchantID, rec.WebhookURL, false).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at", "last_tested_at", "test_status"}).
			AddRow(int64(3), created, created, &tested, strPtr(domain.CredentialTestSuccess)))

	err = repo.Upsert(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.ID)
	assert.True(t, rec.IsActive)
	require.NotNil(t, rec.TestStatus)
	assert.Equal(t, domain.CredentialTestSuccess, *rec.TestStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepo_Upsert_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCredentialRepo(mock)
	rec := &domain.CredentialRecord{UserID: 7}

	mock.ExpectQuery("INSERT INTO payment_credentials").
		WithArgs(rec.UserID, "", "", rec.MerchantID, rec.WebhookURL, false).
		WillReturnError(errors.New("unique violation"))

	err = repo.Upsert(context.Background(), rec)
	assert.Error(t, err)
	assert.False(t, rec.IsActive)
}

func TestCredentialRepo_Deactivate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCredentialRepo(mock)

	mock.ExpectExec("UPDATE payment_credentials SET is_active = FALSE").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.Deactivate(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepo_RecordTestResult(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCredentialRepo(mock)
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE payment_credentials SET last_tested_at").
		WithArgs(at, domain.CredentialTestFailed, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.RecordTestResult(context.Background(), 7, domain.CredentialTestFailed, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
