package response

import (
	"errors"
	"net/http"
	"time"

	"ebook-marketplace/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDKey matches the key the request-id middleware stores under.
const requestIDKey = "request_id"

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Data      any    `json:"data"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data any) {
	success(c, http.StatusOK, data)
}

// Created sends a 201 response with data.
func Created(c *gin.Context, data any) {
	success(c, http.StatusCreated, data)
}

func success(c *gin.Context, status int, data any) {
	c.JSON(status, SuccessResponse{
		Data:      data,
		RequestID: requestID(c),
		Timestamp: now(),
	})
}

// Error maps err onto the error envelope. Only the AppError code and public
// message reach the client; for server-side failures the full error chain is
// attached to the gin context so the request logger can record it.
func Error(c *gin.Context, err error) {
	code, message, status := "SYS_000", "Internal server error", http.StatusInternalServerError

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		code, message, status = appErr.Code, appErr.Message, appErr.HTTPStatus
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}

	c.JSON(status, ErrorResponse{
		ErrorCode: code,
		Message:   message,
		RequestID: requestID(c),
		Timestamp: now(),
	})
}

// requestID returns the id set by the middleware, or a fresh one.
func requestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	return uuid.NewString()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
