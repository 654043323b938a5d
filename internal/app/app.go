// Package app is the HTTP boundary of the booking engine.
package app

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"booking-engine/internal/booking"
	"booking-engine/internal/logging"
)

type App struct {
	Bookings *booking.Service
	// Google is nil when the calendar integration is not configured.
	Google *GoogleOAuth
	Logger *slog.Logger
}

// writeError maps the booking error taxonomy onto HTTP responses.
func (a *App) writeError(c *gin.Context, err error) {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.FieldErrors})
	case errors.Is(err, booking.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "slot no longer available"})
	case errors.Is(err, booking.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		_ = c.Error(err)
		logging.FromContext(c.Request.Context()).Error("http.internal_error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
