// Package slickpay implements the Slickpay payment processor client.
package slickpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"
)

const (
	// DefaultTimeout bounds every outbound call when none is configured.
	DefaultTimeout = 15 * time.Second

	apiKeyHeader = "X-API-KEY"
	maxBodyBytes = 64 << 10
)

var errMissingPaymentID = errors.New("response has no transaction_id")

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Factory builds one Client per merchant credential set.
type Factory struct {
	baseURL    string
	httpClient HTTPClient
	signer     ports.SignatureService
}

// NewFactory creates a factory whose clients share one bounded http.Client.
func NewFactory(baseURL string, timeout time.Duration, signer ports.SignatureService) *Factory {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewFactoryWithClient(baseURL, &http.Client{Timeout: timeout}, signer)
}

// NewFactoryWithClient creates a factory around a caller-supplied HTTP client.
func NewFactoryWithClient(baseURL string, httpClient HTTPClient, signer ports.SignatureService) *Factory {
	return &Factory{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		signer:     signer,
	}
}

// NewClient implements ports.GatewayFactory.
func (f *Factory) NewClient(creds domain.GatewayCredentials) ports.GatewayClient {
	return &Client{
		baseURL:    f.baseURL,
		httpClient: f.httpClient,
		signer:     f.signer,
		creds:      creds,
	}
}

// VerifyWebhookSignature checks a Slickpay webhook: a hex HMAC-SHA256 of the
// raw body under the shared webhook secret, compared in constant time. No
// merchant credentials are involved.
func (f *Factory) VerifyWebhookSignature(rawBody []byte, signature, secret string) bool {
	return verifySignature(f.signer, rawBody, signature, secret)
}

// Client is a single merchant's Slickpay session. It never retries.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	signer     ports.SignatureService
	creds      domain.GatewayCredentials
}

type createPaymentBody struct {
	Amount      json.Number `json:"amount"`
	Currency    string      `json:"currency"`
	Description string      `json:"description"`
	Reference   string      `json:"reference"`
	CallbackURL string      `json:"callback_url"`
	WebhookURL  string      `json:"webhook_url,omitempty"`
	Mode        string      `json:"mode"`
}

type createPaymentResponse struct {
	TransactionID string `json:"transaction_id"`
	PaymentURL    string `json:"payment_url"`
}

type paymentStatusResponse struct {
	TransactionID string `json:"transaction_id"`
	Reference     string `json:"reference"`
	Status        string `json:"status"`
}

// TestConnection calls GET /ping with the merchant's api key.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.do(ctx, "ping", http.MethodGet, "/ping", nil)
	return err
}

// CreatePayment calls POST /payments.
func (c *Client) CreatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentIntent, error) {
	const op = "create_payment"

	body := createPaymentBody{
		Amount:      json.Number(req.Amount.StringFixed(domain.MoneyScale)),
		Currency:    req.Currency,
		Description: req.Description,
		Reference:   req.Reference.String(),
		CallbackURL: req.CallbackURL,
		WebhookURL:  req.WebhookURL,
		Mode:        c.mode(),
	}

	raw, err := c.do(ctx, op, http.MethodPost, "/payments", body)
	if err != nil {
		return nil, err
	}

	var resp createPaymentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &domain.GatewayError{Op: op, StatusCode: http.StatusOK, Payload: string(raw), Err: fmt.Errorf("decode response: %w", err)}
	}
	if resp.TransactionID == "" {
		return nil, &domain.GatewayError{Op: op, Payload: string(raw), Err: errMissingPaymentID}
	}

	return &domain.PaymentIntent{
		PaymentID:  resp.TransactionID,
		PaymentURL: resp.PaymentURL,
	}, nil
}

// GetPaymentStatus calls GET /payments/{id}.
func (c *Client) GetPaymentStatus(ctx context.Context, paymentID string) (*domain.PaymentStatus, error) {
	const op = "get_payment_status"

	raw, err := c.do(ctx, op, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil)
	if err != nil {
		return nil, err
	}

	var resp paymentStatusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &domain.GatewayError{Op: op, StatusCode: http.StatusOK, Payload: string(raw), Err: fmt.Errorf("decode response: %w", err)}
	}
	if resp.TransactionID == "" {
		resp.TransactionID = paymentID
	}

	return &domain.PaymentStatus{
		PaymentID: resp.TransactionID,
		Reference: resp.Reference,
		Status:    resp.Status,
	}, nil
}

// VerifyWebhookSignature is the same check as Factory.VerifyWebhookSignature.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signature, secret string) bool {
	return verifySignature(c.signer, rawBody, signature, secret)
}

func verifySignature(signer ports.SignatureService, rawBody []byte, signature, secret string) bool {
	if signer == nil || len(rawBody) == 0 {
		return false
	}
	return signer.Verify(secret, rawBody, signature)
}

func (c *Client) mode() string {
	if c.creds.TestMode {
		return "test"
	}
	return "live"
}

func (c *Client) do(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, &domain.GatewayError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &domain.GatewayError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(apiKeyHeader, c.creds.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.GatewayError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.GatewayError{Op: op, StatusCode: resp.StatusCode, Payload: string(raw)}
	}
	return raw, nil
}
