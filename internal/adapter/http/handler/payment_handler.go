package handler

import (
	"ebook-marketplace/internal/adapter/http/dto"
	"ebook-marketplace/internal/adapter/http/middleware"
	"ebook-marketplace/internal/core/ports"
	"ebook-marketplace/pkg/apperror"
	"ebook-marketplace/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderWebhookSignature carries the processor's HMAC over the raw body.
const HeaderWebhookSignature = "X-Slickpay-Signature"

// PaymentHandler handles checkout, settlement and transaction lookups.
type PaymentHandler struct {
	settlementSvc ports.SettlementService
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(settlementSvc ports.SettlementService) *PaymentHandler {
	return &PaymentHandler{settlementSvc: settlementSvc}
}

// Checkout handles POST /api/v1/payments/checkout.
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.settlementSvc.Checkout(c.Request.Context(), middleware.PrincipalFrom(c), req.BookID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.Reference.String())
	response.Created(c, dto.CheckoutResponse{
		Reference:  result.Reference.String(),
		PaymentURL: result.PaymentURL,
	})
}

// Webhook handles POST /api/v1/payments/webhook. The body is read raw so the
// signature is checked over the exact bytes the processor sent.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		response.Error(c, apperror.ErrMalformedPayload())
		return
	}

	outcome, err := h.settlementSvc.HandleWebhook(c.Request.Context(), raw, c.GetHeader(HeaderWebhookSignature))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"received": true, "outcome": string(outcome)})
}

// WebhookProbe handles GET /api/v1/payments/webhook so the processor can
// check the endpoint is reachable.
func (h *PaymentHandler) WebhookProbe(c *gin.Context) {
	response.OK(c, gin.H{"message": "webhook endpoint is reachable"})
}

// GetTransaction handles GET /api/v1/payments/transactions/:reference.
func (h *PaymentHandler) GetTransaction(c *gin.Context) {
	ref, ok := parseReference(c)
	if !ok {
		return
	}

	view, err := h.settlementSvc.GetTransaction(c.Request.Context(), middleware.PrincipalFrom(c), ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionResponse(view))
}

// RefreshTransaction handles POST /api/v1/payments/transactions/:reference/refresh.
func (h *PaymentHandler) RefreshTransaction(c *gin.Context) {
	ref, ok := parseReference(c)
	if !ok {
		return
	}

	view, err := h.settlementSvc.RefreshStatus(c.Request.Context(), middleware.PrincipalFrom(c), ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionResponse(view))
}

// parseReference treats a malformed reference as an unknown transaction.
func parseReference(c *gin.Context) (uuid.UUID, bool) {
	ref, err := uuid.Parse(c.Param("reference"))
	if err != nil {
		response.Error(c, apperror.ErrNotFound("Transaction"))
		return uuid.Nil, false
	}
	return ref, true
}
