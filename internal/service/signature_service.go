package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"ebook-marketplace/internal/core/ports"
)

// HMACSignatureService signs and verifies payloads with HMAC-SHA256.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign computes HMAC-SHA256 of payload using secret.
// Returns lowercase hex-encoded signature.
func (s *HMACSignatureService) Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against HMAC-SHA256(secret, payload) in constant time.
// A missing secret or signature never verifies.
func (s *HMACSignatureService) Verify(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := s.Sign(secret, payload)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// WebhookSignatureVerifier implements ports.WebhookVerifier by handing the
// raw body to the processor's own signature check with the process-wide
// webhook secret.
type WebhookSignatureVerifier struct {
	secret  string
	checker ports.WebhookSignatureChecker
}

// NewWebhookSignatureVerifier binds the configured webhook secret to the processor check.
func NewWebhookSignatureVerifier(secret string, checker ports.WebhookSignatureChecker) *WebhookSignatureVerifier {
	return &WebhookSignatureVerifier{secret: secret, checker: checker}
}

// Verify authenticates rawBody exactly as received. An empty secret never verifies.
func (v *WebhookSignatureVerifier) Verify(rawBody []byte, signature string) bool {
	if v.secret == "" {
		return false
	}
	return v.checker.VerifyWebhookSignature(rawBody, signature, v.secret)
}
