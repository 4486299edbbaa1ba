package dto

import (
	"time"

	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaveCredentialRequest is the body of POST /payments/config.
// Secrets are never sanitized: escaping would corrupt them.
type SaveCredentialRequest struct {
	APIKey     string  `json:"apiKey" binding:"required,min=8,max=256" sanitize:"-"`
	SecretKey  string  `json:"secretKey" binding:"required,min=8,max=256" sanitize:"-"`
	MerchantID *string `json:"merchantId,omitempty" binding:"omitempty,max=100,safe_id"`
	WebhookURL *string `json:"webhookUrl,omitempty" binding:"omitempty,max=500,safe_url"`
	IsTestMode *bool   `json:"isTestMode,omitempty"`
}

// Input converts the request; test mode defaults to true.
func (r SaveCredentialRequest) Input() domain.CredentialInput {
	testMode := true
	if r.IsTestMode != nil {
		testMode = *r.IsTestMode
	}
	return domain.CredentialInput{
		APIKey:     r.APIKey,
		SecretKey:  r.SecretKey,
		MerchantID: r.MerchantID,
		WebhookURL: r.WebhookURL,
		IsTestMode: testMode,
	}
}

// CheckoutRequest is the body of POST /payments/checkout.
type CheckoutRequest struct {
	BookID int64 `json:"bookId" binding:"required,gt=0"`
}

// CheckoutResponse is returned after a payment intent is created.
type CheckoutResponse struct {
	Reference  string `json:"reference"`
	PaymentURL string `json:"paymentUrl"`
}

// RejectUserRequest is the body of PATCH /admin/users/:id/reject.
type RejectUserRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ChangeRoleRequest is the body of PATCH /admin/users/:id/role.
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=pending client vendor admin"`
}

// TransactionResponse is a transaction as shown to one viewer.
type TransactionResponse struct {
	Reference     uuid.UUID       `json:"reference"`
	BookID        int64           `json:"bookId"`
	BuyerID       int64           `json:"buyerId"`
	VendorID      int64           `json:"vendorId"`
	Amount        decimal.Decimal `json:"amount"`
	Commission    decimal.Decimal `json:"commission"`
	VendorPayout  decimal.Decimal `json:"vendorPayout"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	PaymentURL    *string         `json:"paymentUrl,omitempty"`
	FailureReason *string         `json:"failureReason,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	ProcessedAt   *time.Time      `json:"processedAt,omitempty"`
}

// NewTransactionResponse maps a view. The failure reason is only present when
// the view carries it.
func NewTransactionResponse(v *ports.TransactionView) TransactionResponse {
	t := v.Transaction
	return TransactionResponse{
		Reference:     t.Reference,
		BookID:        t.ItemID,
		BuyerID:       t.BuyerID,
		VendorID:      t.VendorID,
		Amount:        t.Amount,
		Commission:    t.Commission,
		VendorPayout:  t.Payout,
		Currency:      t.Currency,
		Status:        string(t.Status),
		PaymentURL:    t.PaymentURL,
		FailureReason: v.FailureReason,
		CreatedAt:     t.CreatedAt,
		ProcessedAt:   t.ProcessedAt,
	}
}

// LibraryEntry is one purchase grant.
type LibraryEntry struct {
	BookID        int64     `json:"bookId"`
	TransactionID int64     `json:"transactionId"`
	PurchasedAt   time.Time `json:"purchasedAt"`
}

// NewLibrary maps purchase grants; an empty library is an empty array.
func NewLibrary(purchases []domain.Purchase) []LibraryEntry {
	out := make([]LibraryEntry, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, LibraryEntry{BookID: p.ItemID, TransactionID: p.TransactionID, PurchasedAt: p.PurchasedAt})
	}
	return out
}

// ProfileResponse describes the caller and what the capability table lets them do.
type ProfileResponse struct {
	UserID      int64               `json:"userId"`
	Role        string              `json:"role"`
	Status      string              `json:"status"`
	Permissions map[string][]string `json:"permissions"`
	Superuser   bool                `json:"superuser,omitempty"`
}

// UserResponse is an account as returned to admins.
type UserResponse struct {
	ID              int64      `json:"id"`
	Email           string     `json:"email"`
	FullName        string     `json:"fullName"`
	Role            string     `json:"role"`
	Status          string     `json:"status"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
	ApprovedBy      *int64     `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
}

// NewUserResponse maps an account.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		FullName:        u.FullName,
		Role:            string(u.Role),
		Status:          string(u.Status),
		RejectionReason: u.RejectionReason,
		ApprovedBy:      u.ApprovedBy,
		ApprovedAt:      u.ApprovedAt,
	}
}
