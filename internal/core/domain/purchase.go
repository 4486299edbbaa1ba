package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemStatusApproved marks an item that buyers may check out.
const ItemStatusApproved = "approved"

// Item is the sellable part of a book listing.
type Item struct {
	ID       int64           `json:"id"`
	VendorID int64           `json:"vendor_id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Status   string          `json:"status"`
}

// Purchase is a library grant: at most one per (user, item).
type Purchase struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	ItemID        int64     `json:"item_id"`
	TransactionID int64     `json:"transaction_id"`
	PurchasedAt   time.Time `json:"purchased_at"`
}
