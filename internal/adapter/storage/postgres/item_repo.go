package postgres

import (
	"context"
	"errors"
	"fmt"

	"ebook-marketplace/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// ItemRepo implements ports.ItemRepository over the books table.
type ItemRepo struct {
	pool Pool
}

// NewItemRepo creates a new ItemRepo.
func NewItemRepo(pool Pool) *ItemRepo {
	return &ItemRepo{pool: pool}
}

// GetPurchasable fetches a book that is approved for sale.
func (r *ItemRepo) GetPurchasable(ctx context.Context, id int64) (*domain.Item, error) {
	query := `SELECT id, vendor_id, title, price, status
		FROM books WHERE id = $1 AND status = $2`

	item := &domain.Item{}
	err := r.pool.QueryRow(ctx, query, id, domain.ItemStatusApproved).Scan(
		&item.ID, &item.VendorID, &item.Title, &item.Price, &item.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchasable book: %w", err)
	}
	return item, nil
}
