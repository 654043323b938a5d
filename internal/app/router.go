package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"booking-engine/internal/logging"
)

// AuthConfig selects the credentials accepted on /api routes.
type AuthConfig struct {
	JWTSecret    string
	StaticTokens []string
}

func NewRouter(a *App, auth AuthConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware(a.Logger))

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	// OAuth2 callback and the anonymous booking page (must be before auth middleware)
	router.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)
	public := router.Group("/public/calendars/:slug")
	{
		public.GET("/slots", a.PublicSlotsHandler)
		public.POST("/bookings", a.PublicCreateBookingHandler)
		public.POST("/cancel", a.PublicCancelHandler)
	}

	api := router.Group("/api", AuthMiddleware(auth.JWTSecret, auth.StaticTokens))
	{
		calendars := api.Group("/calendars")
		{
			calendars.GET("/:id/slots", a.CalendarSlotsHandler)
			calendars.GET("/:id/bookings", a.ListBookingsHandler)
			calendars.POST("/:id/bookings", a.CreateBookingHandler)
		}
		bookings := api.Group("/bookings")
		{
			bookings.GET("/:id", a.GetBookingHandler)
			bookings.POST("/:id/confirm", a.ConfirmBookingHandler)
			bookings.POST("/:id/cancel", a.CancelBookingHandler)
			bookings.POST("/:id/reschedule", a.RescheduleBookingHandler)
			bookings.PATCH("/:id", a.RescheduleBookingHandler)
			bookings.DELETE("/:id", a.CancelBookingHandler)
		}
		api.GET("/integrations/google/auth", a.GoogleAuthHandler)
	}
	return router
}
