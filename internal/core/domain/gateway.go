package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrIntegrity reports a failed authenticity check on stored or received data.
// The message deliberately says nothing about which check failed.
var ErrIntegrity = errors.New("integrity verification failed")

// PaymentRequest is the create-payment call sent to a processor.
type PaymentRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	Reference   uuid.UUID
	CallbackURL string
	WebhookURL  string
}

// PaymentIntent is the processor's answer to a create-payment call.
type PaymentIntent struct {
	PaymentID  string
	PaymentURL string
}

// PaymentStatus is a processor-side view of one payment, used for polling.
type PaymentStatus struct {
	PaymentID string
	Reference string
	Status    string
}

// WebhookEvent is the body of an inbound processor notification.
type WebhookEvent struct {
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

// SettlementOutcome describes what a settlement attempt did.
type SettlementOutcome string

const (
	SettlementApplied         SettlementOutcome = "applied"
	SettlementAlreadyTerminal SettlementOutcome = "already_terminal"
	SettlementIgnored         SettlementOutcome = "ignored"
)

// ClassifyProcessorStatus maps a processor status word to a terminal
// transaction status. ok is false for words that must be ignored.
func ClassifyProcessorStatus(status string) (next TransactionStatus, ok bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed", "success":
		return TransactionStatusCompleted, true
	case "failed":
		return TransactionStatusFailed, true
	}
	return "", false
}

// GatewayError is a transport or processor-side failure. Payload keeps the
// processor's raw error body for diagnostics.
type GatewayError struct {
	Op         string
	StatusCode int
	Payload    string
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Payload != "":
		return fmt.Sprintf("gateway %s: status %d: %s", e.Op, e.StatusCode, e.Payload)
	case e.StatusCode != 0:
		return fmt.Sprintf("gateway %s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gateway %s failed", e.Op)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call ran out of time before an answer arrived.
func (e *GatewayError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Reason is the text recorded on a failed transaction.
func (e *GatewayError) Reason() string {
	if e.Payload != "" {
		return e.Payload
	}
	return e.Error()
}
