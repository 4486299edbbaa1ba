package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// AuditLog records successful write operations after the handler ran.
// Rejected webhook deliveries are recorded as security events.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method, status)
		if action == "" {
			return
		}

		var userID *int64
		if p := PrincipalFrom(c); p.UserID != 0 {
			uid := p.UserID
			userID = &uid
		}

		resourceID := c.GetString(CtxResourceID)
		if resourceID == "" {
			resourceID = c.Param("reference")
		}
		if resourceID == "" {
			resourceID = c.Param("id")
		}

		details, _ := json.Marshal(map[string]any{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": status,
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			UserID:       userID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapRouteToAction(route, method string, status int) (domain.AuditAction, string) {
	if route == "/api/v1/payments/webhook" && method == http.MethodPost && status == http.StatusUnauthorized {
		return domain.AuditActionWebhookRejected, "webhook"
	}
	if status < 200 || status >= 300 {
		return "", ""
	}

	switch {
	case route == "/api/v1/payments/checkout" && method == http.MethodPost:
		return domain.AuditActionCheckout, "transaction"
	case route == "/api/v1/payments/webhook" && method == http.MethodPost:
		return domain.AuditActionSettlement, "transaction"
	case route == "/api/v1/payments/transactions/:reference/refresh" && method == http.MethodPost:
		return domain.AuditActionSettlement, "transaction"
	case route == "/api/v1/payments/config" && method == http.MethodPost:
		return domain.AuditActionCredentialSave, "payment_config"
	case route == "/api/v1/payments/config/test" && method == http.MethodPost:
		return domain.AuditActionCredentialTest, "payment_config"
	case route == "/api/v1/payments/config" && method == http.MethodDelete:
		return domain.AuditActionCredentialDisable, "payment_config"
	case method == http.MethodPatch && (route == "/api/v1/admin/users/:id/approve" ||
		route == "/api/v1/admin/users/:id/reject" ||
		route == "/api/v1/admin/users/:id/suspend"):
		return domain.AuditActionUserStatus, "user"
	case route == "/api/v1/admin/users/:id/role" && method == http.MethodPatch:
		return domain.AuditActionUserRole, "user"
	}
	return "", ""
}
