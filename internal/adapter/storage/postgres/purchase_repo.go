package postgres

import (
	"context"
	"fmt"

	"ebook-marketplace/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// PurchaseRepo implements ports.PurchaseRepository.
type PurchaseRepo struct {
	pool Pool
}

// NewPurchaseRepo creates a new PurchaseRepo.
func NewPurchaseRepo(pool Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

// Upsert grants the book to the user. A repeat grant for the same pair points
// the existing row at the newer transaction.
func (r *PurchaseRepo) Upsert(ctx context.Context, tx pgx.Tx, p *domain.Purchase) error {
	query := `INSERT INTO purchases (user_id, book_id, transaction_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, book_id) DO UPDATE SET transaction_id = EXCLUDED.transaction_id
		RETURNING id, purchased_at`

	err := tx.QueryRow(ctx, query, p.UserID, p.ItemID, p.TransactionID).Scan(&p.ID, &p.PurchasedAt)
	if err != nil {
		return fmt.Errorf("upsert purchase: %w", err)
	}
	return nil
}

// ListByUser returns the user's library, newest first.
func (r *PurchaseRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Purchase, error) {
	query := `SELECT id, user_id, book_id, transaction_id, purchased_at
		FROM purchases WHERE user_id = $1 ORDER BY purchased_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []domain.Purchase
	for rows.Next() {
		var p domain.Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.ItemID, &p.TransactionID, &p.PurchasedAt); err != nil {
			return nil, fmt.Errorf("scan purchase row: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase rows: %w", err)
	}
	return purchases, nil
}
