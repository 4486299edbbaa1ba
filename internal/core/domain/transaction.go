package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// MoneyScale is the number of fractional digits kept on every amount.
const MoneyScale = 2

var (
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrInvalidRate       = errors.New("commission rate must be in [0,1)")
)

// Transaction is one checkout attempt for one item.
type Transaction struct {
	ID                   int64             `json:"id"`
	Reference            uuid.UUID         `json:"reference"`
	BuyerID              int64             `json:"buyer_id"`
	VendorID             int64             `json:"vendor_id"`
	ItemID               int64             `json:"item_id"`
	Amount               decimal.Decimal   `json:"amount"`
	Commission           decimal.Decimal   `json:"commission"`
	Payout               decimal.Decimal   `json:"payout"`
	Currency             string            `json:"currency"`
	Status               TransactionStatus `json:"status"`
	GatewayTransactionID *string           `json:"gateway_transaction_id,omitempty"`
	PaymentURL           *string           `json:"payment_url,omitempty"`
	FailureReason        *string           `json:"-"` // raw processor payload, owners only
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	ProcessedAt          *time.Time        `json:"processed_at,omitempty"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted ||
		t.Status == TransactionStatusFailed
}

// CanTransitionTo reports whether moving to next is a legal step.
// Only pending may move, and only to a terminal state.
func (t *Transaction) CanTransitionTo(next TransactionStatus) bool {
	if t.Status != TransactionStatusPending {
		return false
	}
	return next == TransactionStatusCompleted || next == TransactionStatusFailed
}

// IsParty reports whether userID is the buyer or the vendor.
func (t *Transaction) IsParty(userID int64) bool {
	return t.BuyerID == userID || t.VendorID == userID
}

// SplitCommission rounds the platform share to MoneyScale and assigns the
// remainder to the vendor, so commission + payout == gross exactly.
func SplitCommission(gross, rate decimal.Decimal) (commission, payout decimal.Decimal) {
	commission = gross.Mul(rate).Round(MoneyScale)
	payout = gross.Sub(commission)
	return commission, payout
}

// NewPendingTransaction prices a checkout of item by buyerID.
func NewPendingTransaction(buyerID int64, item *Item, rate decimal.Decimal, currency string) (*Transaction, error) {
	if !item.Price.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, ErrInvalidRate
	}

	gross := item.Price.Round(MoneyScale)
	commission, payout := SplitCommission(gross, rate)

	return &Transaction{
		Reference:  uuid.New(),
		BuyerID:    buyerID,
		VendorID:   item.VendorID,
		ItemID:     item.ID,
		Amount:     gross,
		Commission: commission,
		Payout:     payout,
		Currency:   currency,
		Status:     TransactionStatusPending,
	}, nil
}
