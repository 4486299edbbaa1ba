package handler

import (
	"ebook-marketplace/internal/adapter/http/dto"
	"ebook-marketplace/internal/adapter/http/middleware"
	"ebook-marketplace/internal/core/ports"
	"ebook-marketplace/pkg/apperror"
	"ebook-marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

// MerchantHandler serves a vendor's own payment processor configuration.
type MerchantHandler struct {
	credSvc ports.CredentialService
}

// NewMerchantHandler creates a new merchant handler.
func NewMerchantHandler(credSvc ports.CredentialService) *MerchantHandler {
	return &MerchantHandler{credSvc: credSvc}
}

// GetConfig handles GET /api/v1/payments/config.
func (h *MerchantHandler) GetConfig(c *gin.Context) {
	p := middleware.PrincipalFrom(c)

	summary, err := h.credSvc.GetSummary(c.Request.Context(), p.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// SaveConfig handles POST /api/v1/payments/config.
func (h *MerchantHandler) SaveConfig(c *gin.Context) {
	p := middleware.PrincipalFrom(c)

	var req dto.SaveCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	summary, err := h.credSvc.Save(c.Request.Context(), p.UserID, req.Input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// TestConfig handles POST /api/v1/payments/config/test.
func (h *MerchantHandler) TestConfig(c *gin.Context) {
	p := middleware.PrincipalFrom(c)

	summary, err := h.credSvc.TestConnection(c.Request.Context(), p.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// DeleteConfig handles DELETE /api/v1/payments/config.
func (h *MerchantHandler) DeleteConfig(c *gin.Context) {
	p := middleware.PrincipalFrom(c)

	if err := h.credSvc.Deactivate(c.Request.Context(), p.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "payment configuration deactivated"})
}
