package handler

import (
	"ebook-marketplace/internal/adapter/http/dto"
	"ebook-marketplace/internal/adapter/http/middleware"
	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"
	"ebook-marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

// UserHandler serves the caller's own view of the marketplace.
type UserHandler struct {
	settlementSvc ports.SettlementService
	caps          *domain.Capabilities
}

// NewUserHandler creates a new user handler.
func NewUserHandler(settlementSvc ports.SettlementService, caps *domain.Capabilities) *UserHandler {
	if caps == nil {
		caps = domain.DefaultCapabilities()
	}
	return &UserHandler{settlementSvc: settlementSvc, caps: caps}
}

// Library handles GET /api/v1/library.
func (h *UserHandler) Library(c *gin.Context) {
	p := middleware.PrincipalFrom(c)

	purchases, err := h.settlementSvc.Library(c.Request.Context(), p.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewLibrary(purchases))
}

// Profile handles GET /api/v1/profile.
func (h *UserHandler) Profile(c *gin.Context) {
	p := middleware.PrincipalFrom(c)

	perms := make(map[string][]string)
	for res, set := range h.caps.Grants(p.Role) {
		perms[string(res)] = set.List()
	}

	response.OK(c, dto.ProfileResponse{
		UserID:      p.UserID,
		Role:        string(p.Role),
		Status:      string(p.Status),
		Permissions: perms,
		Superuser:   h.caps.IsSuperuser(p.Role),
	})
}
