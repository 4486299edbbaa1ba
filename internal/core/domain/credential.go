package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	CredentialTestSuccess = "success"
	CredentialTestFailed  = "failed"
)

// CredentialRecord is a merchant's processor configuration with both
// secrets sealed by the vault. One row per merchant.
type CredentialRecord struct {
	ID                 int64
	UserID             int64
	APIKeyEncrypted    string
	SecretKeyEncrypted string
	MerchantID         *string
	WebhookURL         *string
	IsTestMode         bool
	IsActive           bool
	LastTestedAt       *time.Time
	TestStatus         *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CredentialSummary is the client-visible view of a record. It never carries secrets.
type CredentialSummary struct {
	Configured   bool       `json:"configured"`
	ID           int64      `json:"id,omitempty"`
	IsActive     bool       `json:"is_active"`
	IsTestMode   bool       `json:"is_test_mode"`
	MerchantID   *string    `json:"merchant_id,omitempty"`
	WebhookURL   *string    `json:"webhook_url,omitempty"`
	LastTestedAt *time.Time `json:"last_tested_at,omitempty"`
	TestStatus   *string    `json:"test_status,omitempty"`
}

// Summary strips the sealed secrets from the record.
func (c *CredentialRecord) Summary() CredentialSummary {
	if c == nil {
		return CredentialSummary{}
	}
	return CredentialSummary{
		Configured:   true,
		ID:           c.ID,
		IsActive:     c.IsActive,
		IsTestMode:   c.IsTestMode,
		MerchantID:   c.MerchantID,
		WebhookURL:   c.WebhookURL,
		LastTestedAt: c.LastTestedAt,
		TestStatus:   c.TestStatus,
	}
}

// CredentialInput is what a merchant submits when saving a configuration.
type CredentialInput struct {
	APIKey     string
	SecretKey  string
	MerchantID *string
	WebhookURL *string
	IsTestMode bool
}

func (in CredentialInput) String() string {
	return fmt.Sprintf("CredentialInput{APIKey:%s SecretKey:%s TestMode:%t}", redacted, redacted, in.IsTestMode)
}

// GatewayCredentials is the decrypted material a gateway client is built from.
// It lives only for the duration of one request.
type GatewayCredentials struct {
	APIKey    string
	SecretKey string
	TestMode  bool
}

const redacted = "[REDACTED]"

func (g GatewayCredentials) String() string {
	return fmt.Sprintf("GatewayCredentials{APIKey:%s SecretKey:%s TestMode:%t}", redacted, redacted, g.TestMode)
}

func (g GatewayCredentials) GoString() string {
	return g.String()
}

func (g GatewayCredentials) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"api_key":    redacted,
		"secret_key": redacted,
		"test_mode":  g.TestMode,
	})
}

// SealedSecret is one AEAD output. Each field is base64 encoded when packed.
type SealedSecret struct {
	IV         []byte `json:"iv"`
	AuthTag    []byte `json:"authTag"`
	CipherText []byte `json:"cipherText"`
}
