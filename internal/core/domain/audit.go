package domain

import "time"

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionCheckout           AuditAction = "CHECKOUT"
	AuditActionSettlement         AuditAction = "SETTLEMENT"
	AuditActionWebhookRejected    AuditAction = "WEBHOOK_REJECTED"
	AuditActionCredentialSave     AuditAction = "CREDENTIAL_SAVE"
	AuditActionCredentialTest     AuditAction = "CREDENTIAL_TEST"
	AuditActionCredentialDisable  AuditAction = "CREDENTIAL_DEACTIVATE"
	AuditActionUserStatus         AuditAction = "USER_STATUS"
	AuditActionUserRole           AuditAction = "USER_ROLE"
	AuditActionAccessDenied       AuditAction = "ACCESS_DENIED"
	AuditActionReconcileAbandoned AuditAction = "RECONCILE_ABANDONED"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           int64       `json:"id"`
	UserID       *int64      `json:"user_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
