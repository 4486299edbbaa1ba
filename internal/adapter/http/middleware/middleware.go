package middleware

import (
	"net/http"
	"strings"
	"time"

	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"
	"ebook-marketplace/pkg/apperror"
	"ebook-marketplace/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderRequestID = "X-Request-ID"

	// Context keys
	CtxPrincipal  = "principal"
	CtxRequestID  = "request_id"
	CtxResourceID = "audit_resource_id"
)

// JWTAuth validates the bearer token and reloads the account on every request
// so that status and role changes take effect immediately.
func JWTAuth(tokenSvc ports.TokenService, users ports.UserRepository, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, apperror.ErrMissingToken())
			c.Abort()
			return
		}
		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenStr == "" {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			log.Debug().Err(err).Msg("rejected bearer token")
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			log.Error().Err(err).Int64("user_id", claims.UserID).Msg("failed to load user")
			response.Error(c, apperror.ErrDatabaseError(err))
			c.Abort()
			return
		}
		if user == nil {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		switch user.Status {
		case domain.UserStatusSuspended:
			response.Error(c, apperror.ErrAccountSuspended())
			c.Abort()
			return
		case domain.UserStatusRejected:
			response.Error(c, apperror.ErrAccountRejected())
			c.Abort()
			return
		}

		c.Set(CtxPrincipal, user.Principal())
		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal, or the anonymous one.
func PrincipalFrom(c *gin.Context) domain.Principal {
	if v, exists := c.Get(CtxPrincipal); exists {
		if p, ok := v.(domain.Principal); ok {
			return p
		}
	}
	return domain.Anonymous
}

// RequestID propagates X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		if p := PrincipalFrom(c); p.UserID != 0 {
			event = event.Int64("user_id", p.UserID)
		}
		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.String())
		}

		event.
			Str("request_id", c.GetString(CtxRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
