// Package httperr centralizes the error taxonomy and its mapping to
// HTTP responses. Services return plain errors; handlers call Render.
package httperr

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// APIError is a user-facing error carrying an HTTP status.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string { return e.Detail }

// Validation creates a 400 error for user-correctable input.
func Validation(detail string) error {
	return &APIError{Status: http.StatusBadRequest, Detail: detail}
}

// NotFound creates a 404 error.
func NotFound(detail string) error {
	return &APIError{Status: http.StatusNotFound, Detail: detail}
}

// Permission creates a 403 error for acting on another user's resource.
func Permission(detail string) error {
	return &APIError{Status: http.StatusForbidden, Detail: detail}
}

// Unauthorized creates a 401 error for missing/invalid credentials.
func Unauthorized(detail string) error {
	return &APIError{Status: http.StatusUnauthorized, Detail: detail}
}

// Render writes err as a JSON response on c.
// Keeps handlers clean by centralizing error mapping.
func Render(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		c.JSON(apiErr.Status, gin.H{"detail": apiErr.Detail})

	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "record not found"})

	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"detail": "request timed out"})

	case errors.Is(err, context.Canceled):
		c.JSON(499, gin.H{"detail": "request was canceled"})

	default:
		// fallback → bubble up error message for debugging
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
	}
}
