package middleware

import (
	"encoding/json"
	"time"

	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"
	"ebook-marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

// Authorize guards a route with one (resource, action) pair. It must run after JWTAuth.
// auditSvc may be nil.
func Authorize(evaluator ports.PermissionEvaluator, auditSvc ports.AuditService, resource domain.Resource, action domain.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFrom(c)

		if err := evaluator.Authorize(p, resource, action); err != nil {
			if auditSvc != nil {
				details, _ := json.Marshal(map[string]string{
					"role":     string(p.Role),
					"status":   string(p.Status),
					"resource": string(resource),
					"action":   action.String(),
				})
				entry := &domain.AuditLog{
					Action:       domain.AuditActionAccessDenied,
					ResourceType: string(resource),
					ResourceID:   c.FullPath(),
					Details:      string(details),
					IPAddress:    c.ClientIP(),
					CreatedAt:    time.Now().UTC(),
				}
				if p.UserID != 0 {
					uid := p.UserID
					entry.UserID = &uid
				}
				auditSvc.Log(c.Request.Context(), entry)
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Next()
	}
}
