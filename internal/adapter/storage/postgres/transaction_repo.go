package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, transaction_uuid, buyer_id, vendor_id, book_id, amount, commission, vendor_payout,
		currency, status, gateway_transaction_id, payment_url, failure_reason, created_at, updated_at, processed_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a pending transaction within a database transaction and
// fills in the generated id and timestamps.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (transaction_uuid, buyer_id, vendor_id, book_id, amount, commission, vendor_payout, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := tx.QueryRow(ctx, query,
		t.Reference, t.BuyerID, t.VendorID, t.ItemID,
		t.Amount, t.Commission, t.Payout, t.Currency, string(t.Status),
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByReference fetches a transaction by its public reference.
func (r *TransactionRepo) GetByReference(ctx context.Context, reference uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_uuid = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, reference))
	if err != nil {
		return nil, fmt.Errorf("get transaction by reference: %w", err)
	}
	return t, nil
}

// GetByReferenceForUpdate locks the row until tx ends. Concurrent settlements
// of the same reference serialize here.
func (r *TransactionRepo) GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_uuid = $1 FOR UPDATE`

	t, err := scanTransaction(tx.QueryRow(ctx, query, reference))
	if err != nil {
		return nil, fmt.Errorf("lock transaction by reference: %w", err)
	}
	return t, nil
}

// AttachPaymentIntent stores the processor's payment id and url. A payment id
// already written by an early webhook is kept.
func (r *TransactionRepo) AttachPaymentIntent(ctx context.Context, tx pgx.Tx, id int64, intent domain.PaymentIntent) error {
	query := `UPDATE transactions
		SET gateway_transaction_id = COALESCE(gateway_transaction_id, $1), payment_url = $2, updated_at = NOW()
		WHERE id = $3`

	tag, err := tx.Exec(ctx, query, intent.PaymentID, intent.PaymentURL, id)
	if err != nil {
		return fmt.Errorf("attach payment intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %d", id)
	}
	return nil
}

// MarkCompleted moves a pending row to completed.
func (r *TransactionRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id int64, gatewayTxID *string, processedAt time.Time) (bool, error) {
	query := `UPDATE transactions
		SET status = $1, gateway_transaction_id = COALESCE($2, gateway_transaction_id), processed_at = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`

	tag, err := tx.Exec(ctx, query,
		string(domain.TransactionStatusCompleted), gatewayTxID, processedAt, id,
		string(domain.TransactionStatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("mark transaction completed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailed moves a pending row to failed.
func (r *TransactionRepo) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, reason *string, processedAt time.Time) (bool, error) {
	query := `UPDATE transactions
		SET status = $1, failure_reason = COALESCE($2, failure_reason), processed_at = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`

	tag, err := tx.Exec(ctx, query,
		string(domain.TransactionStatusFailed), reason, processedAt, id,
		string(domain.TransactionStatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("mark transaction failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListStalePending returns the next page of pending rows created before
// olderThan, keyed on (created_at, id) so rows the processor still reports
// as open cannot pin later rows out of the scan.
func (r *TransactionRepo) ListStalePending(ctx context.Context, olderThan time.Time, after ports.PendingCursor, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = $1 AND created_at < $2 AND (created_at, id) > ($3, $4)
		ORDER BY created_at ASC, id ASC LIMIT $5`

	rows, err := r.pool.Query(ctx, query,
		string(domain.TransactionStatusPending), olderThan, after.CreatedAt, after.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale pending transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

// scanTransaction returns nil, nil when the row does not exist.
func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.Reference, &t.BuyerID, &t.VendorID, &t.ItemID,
		&t.Amount, &t.Commission, &t.Payout, &t.Currency, &t.Status,
		&t.GatewayTransactionID, &t.PaymentURL, &t.FailureReason,
		&t.CreatedAt, &t.UpdatedAt, &t.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}
