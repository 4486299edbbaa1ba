package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"ebook-marketplace/internal/core/domain"

	"github.com/google/uuid"
)

// Vault seals and opens merchant secrets with an AEAD cipher.
type Vault interface {
	Seal(plaintext string) (domain.SealedSecret, error)
	Open(sealed domain.SealedSecret) (string, error)
	// Encrypt and Decrypt work on the packed at-rest representation.
	Encrypt(plaintext string) (string, error)
	Decrypt(packed string) (string, error)
}

// PermissionEvaluator is the single authorization entry point.
type PermissionEvaluator interface {
	Allow(role domain.Role, resource domain.Resource, action domain.Action) bool
	AllowAll(role domain.Role, perms ...domain.Permission) bool
	// Authorize applies the approval gate and then the capability table.
	Authorize(p domain.Principal, resource domain.Resource, action domain.Action) error
}

// GatewayClient is one merchant's view of a payment processor.
type GatewayClient interface {
	TestConnection(ctx context.Context) error
	CreatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentIntent, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (*domain.PaymentStatus, error)
	VerifyWebhookSignature(rawBody []byte, signature, secret string) bool
}

// GatewayFactory builds short-lived clients from decrypted credentials.
type GatewayFactory interface {
	NewClient(creds domain.GatewayCredentials) GatewayClient
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secret string, payload []byte) string
	Verify(secret string, payload []byte, signature string) bool
}

// WebhookSignatureChecker is the processor-level webhook check. It needs no
// merchant credentials, only the shared webhook secret.
type WebhookSignatureChecker interface {
	VerifyWebhookSignature(rawBody []byte, signature, secret string) bool
}

// WebhookVerifier authenticates inbound processor notifications.
type WebhookVerifier interface {
	Verify(rawBody []byte, signature string) bool
}

// MerchantGatewayResolver opens a merchant's active credentials and builds a client.
type MerchantGatewayResolver interface {
	ForMerchant(ctx context.Context, merchantID int64) (GatewayClient, *domain.CredentialRecord, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID int64) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID int64
}

// RateLimiter counts events in a fixed window.
type RateLimiter interface {
	// Allow records one event for key and reports whether it fits in limit per window.
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (allowed bool, remaining int64, err error)
}

// SettlementRecorder observes checkout and settlement outcomes.
type SettlementRecorder interface {
	CheckoutResult(outcome string)
	WebhookResult(outcome string)
	GatewayCall(operation string, err error, elapsed time.Duration)
}

// --- Service Ports (Business Logic) ---

// SettlementService owns checkout and webhook-driven settlement.
type SettlementService interface {
	Checkout(ctx context.Context, buyer domain.Principal, itemID int64) (*CheckoutResult, error)
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) (domain.SettlementOutcome, error)
	RefreshStatus(ctx context.Context, viewer domain.Principal, reference uuid.UUID) (*TransactionView, error)
	GetTransaction(ctx context.Context, viewer domain.Principal, reference uuid.UUID) (*TransactionView, error)
	Library(ctx context.Context, userID int64) ([]domain.Purchase, error)
}

// Reconciler settles transactions whose webhook never arrived.
type Reconciler interface {
	ReconcilePending(ctx context.Context, olderThan, abandonBefore time.Time) (ReconcileReport, error)
}

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Scanned   int
	Settled   int
	Abandoned int
	Errors    int
}

// CheckoutResult is returned to the buyer after a payment intent is created.
type CheckoutResult struct {
	Reference  uuid.UUID `json:"reference"`
	PaymentURL string    `json:"payment_url"`
}

// TransactionView is a transaction as shown to one viewer.
type TransactionView struct {
	Transaction   *domain.Transaction
	FailureReason *string // set only for the vendor or an admin
}

// CredentialService manages a merchant's processor configuration.
type CredentialService interface {
	GetSummary(ctx context.Context, userID int64) (domain.CredentialSummary, error)
	Save(ctx context.Context, userID int64, in domain.CredentialInput) (domain.CredentialSummary, error)
	TestConnection(ctx context.Context, userID int64) (domain.CredentialSummary, error)
	Deactivate(ctx context.Context, userID int64) error
}

// UserAdminService holds admin decisions on accounts.
type UserAdminService interface {
	Approve(ctx context.Context, admin domain.Principal, userID int64) (*domain.User, error)
	Reject(ctx context.Context, admin domain.Principal, userID int64, reason string) (*domain.User, error)
	Suspend(ctx context.Context, admin domain.Principal, userID int64) (*domain.User, error)
	ChangeRole(ctx context.Context, admin domain.Principal, userID int64, role domain.Role) (*domain.User, error)
}

// AuditService records audited actions asynchronously.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
