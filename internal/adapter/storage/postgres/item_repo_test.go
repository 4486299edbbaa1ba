package postgres

import (
	"context"
	"testing"

	"ebook-marketplace/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemRepo_GetPurchasable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewItemRepo(mock)
	price := decimal.RequireFromString("1500.00")

	mock.ExpectQuery("SELECT .+ FROM books WHERE id = \\$1 AND status = \\$2").
		WithArgs(int64(12), domain.ItemStatusApproved).
		WillReturnRows(pgxmock.NewRows([]string{"id", "vendor_id", "title", "price", "status"}).
			AddRow(int64(12), int64(7), "Kitab", price, domain.ItemStatusApproved))

	item, err := repo.GetPurchasable(context.Background(), 12)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, int64(7), item.VendorID)
	assert.True(t, item.Price.Equal(price))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepo_GetPurchasable_NotApproved(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewItemRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM books").
		WithArgs(int64(12), domain.ItemStatusApproved).
		WillReturnRows(pgxmock.NewRows([]string{"id", "vendor_id", "title", "price", "status"}))

	item, err := repo.GetPurchasable(context.Background(), 12)
	assert.NoError(t, err)
	assert.Nil(t, item)
}
