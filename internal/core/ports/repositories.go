package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"time"

	"ebook-marketplace/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository defines persistence operations for accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateStatus(ctx context.Context, id int64, update UserStatusUpdate) (*domain.User, error)
	UpdateRole(ctx context.Context, id int64, role domain.Role) (*domain.User, error)
}

// UserStatusUpdate carries an admin status decision.
type UserStatusUpdate struct {
	Status          domain.UserStatus
	RejectionReason *string
	ApprovedBy      *int64
	ApprovedAt      *time.Time
}

// ItemRepository reads the sellable part of listings.
type ItemRepository interface {
	// GetPurchasable returns the item only when it is approved for sale.
	GetPurchasable(ctx context.Context, id int64) (*domain.Item, error)
}

// CredentialRepository defines persistence for merchant credential records.
type CredentialRepository interface {
	GetByUser(ctx context.Context, userID int64) (*domain.CredentialRecord, error)
	GetActiveByUser(ctx context.Context, userID int64) (*domain.CredentialRecord, error)
	// Upsert writes the single record of rec.UserID and re-activates it.
	Upsert(ctx context.Context, rec *domain.CredentialRecord) error
	Deactivate(ctx context.Context, userID int64) error
	RecordTestResult(ctx context.Context, userID int64, status string, testedAt time.Time) error
}

// TransactionRepository defines persistence operations for transactions.
// Methods accepting pgx.Tx run inside a caller-owned unit of work.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, trx *domain.Transaction) error
	GetByReference(ctx context.Context, reference uuid.UUID) (*domain.Transaction, error)
	GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference uuid.UUID) (*domain.Transaction, error)
	AttachPaymentIntent(ctx context.Context, tx pgx.Tx, id int64, intent domain.PaymentIntent) error
	// MarkCompleted and MarkFailed only touch pending rows and report whether a row changed.
	MarkCompleted(ctx context.Context, tx pgx.Tx, id int64, gatewayTxID *string, processedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, tx pgx.Tx, id int64, reason *string, processedAt time.Time) (bool, error)
	// ListStalePending pages pending rows created before olderThan in
	// (created_at, id) order, starting strictly after the cursor.
	ListStalePending(ctx context.Context, olderThan time.Time, after PendingCursor, limit int) ([]domain.Transaction, error)
}

// PendingCursor is a keyset position in the stale-pending scan. The zero
// value starts from the oldest row.
type PendingCursor struct {
	CreatedAt time.Time
	ID        int64
}

// PurchaseRepository defines persistence for library grants.
type PurchaseRepository interface {
	// Upsert merges on (user_id, item_id); a second grant rebinds the transaction.
	Upsert(ctx context.Context, tx pgx.Tx, purchase *domain.Purchase) error
	ListByUser(ctx context.Context, userID int64) ([]domain.Purchase, error)
}

// SettingsRepository reads runtime system settings.
type SettingsRepository interface {
	// CommissionRate returns the stored rate, or ok=false when none is set.
	CommissionRate(ctx context.Context) (rate decimal.Decimal, ok bool, err error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
