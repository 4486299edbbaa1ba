package handler

import (
	"strconv"

	"ebook-marketplace/internal/adapter/http/dto"
	"ebook-marketplace/internal/adapter/http/middleware"
	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"
	"ebook-marketplace/pkg/apperror"
	"ebook-marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles account moderation.
type AdminHandler struct {
	adminSvc ports.UserAdminService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(adminSvc ports.UserAdminService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc}
}

// Approve handles PATCH /api/v1/admin/users/:id/approve.
func (h *AdminHandler) Approve(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	user, err := h.adminSvc.Approve(c.Request.Context(), middleware.PrincipalFrom(c), id)
	respondUser(c, user, err)
}

// Reject handles PATCH /api/v1/admin/users/:id/reject.
func (h *AdminHandler) Reject(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	var req dto.RejectUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	user, err := h.adminSvc.Reject(c.Request.Context(), middleware.PrincipalFrom(c), id, req.Reason)
	respondUser(c, user, err)
}

// Suspend handles PATCH /api/v1/admin/users/:id/suspend.
func (h *AdminHandler) Suspend(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	user, err := h.adminSvc.Suspend(c.Request.Context(), middleware.PrincipalFrom(c), id)
	respondUser(c, user, err)
}

// ChangeRole handles PATCH /api/v1/admin/users/:id/role.
func (h *AdminHandler) ChangeRole(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	var req dto.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	user, err := h.adminSvc.ChangeRole(c.Request.Context(), middleware.PrincipalFrom(c), id, domain.Role(req.Role))
	respondUser(c, user, err)
}

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, apperror.Validation("user id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func respondUser(c *gin.Context, user *domain.User, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewUserResponse(user))
}
