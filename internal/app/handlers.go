package app

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"booking-engine/internal/booking"
)

// GET /api/calendars/:id/slots?from=YYYY-MM-DD&to=YYYY-MM-DD
func (a *App) CalendarSlotsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	cfg, err := a.Bookings.Calendar(ctx, c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	if !canAccess(c, cfg.OrganizationID) {
		a.writeError(c, booking.ErrNotFound)
		return
	}
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	slots, err := a.Bookings.Slots(ctx, cfg.ID, from, to)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slotsResponse{CalendarID: cfg.ID, Timezone: cfg.Timezone, DurationMinutes: cfg.DurationMinutes, Slots: slots})
}

// GET /api/calendars/:id/bookings?from=ISO&to=ISO
func (a *App) ListBookingsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	cfg, err := a.Bookings.Calendar(ctx, c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	if !canAccess(c, cfg.OrganizationID) {
		a.writeError(c, booking.ErrNotFound)
		return
	}

	q := booking.ListQuery{CalendarID: cfg.ID}
	if s := c.Query("from"); s != "" {
		if q.From, err = time.Parse(time.RFC3339, s); err != nil {
			badRequest(c, "invalid from")
			return
		}
	}
	if s := c.Query("to"); s != "" {
		if q.To, err = time.Parse(time.RFC3339, s); err != nil {
			badRequest(c, "invalid to")
			return
		}
	}

	bookings, err := a.Bookings.List(ctx, q)
	if err != nil {
		a.writeError(c, err)
		return
	}
	if bookings == nil {
		bookings = []booking.Booking{}
	}
	c.JSON(http.StatusOK, bookings)
}

// POST /api/calendars/:id/bookings
func (a *App) CreateBookingHandler(c *gin.Context) {
	ctx := c.Request.Context()
	var req createBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cfg, err := a.Bookings.Calendar(ctx, c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	if !canAccess(c, cfg.OrganizationID) {
		a.writeError(c, booking.ErrNotFound)
		return
	}
	b, err := a.Bookings.Create(ctx, req.toRequest(cfg.ID))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// loadBooking fetches a booking the caller is allowed to see.
func (a *App) loadBooking(c *gin.Context) (booking.Booking, bool) {
	b, err := a.Bookings.Get(c.Request.Context(), c.Param("id"))
	if err == nil && !canAccess(c, b.OrganizationID) {
		err = booking.ErrNotFound
	}
	if err != nil {
		a.writeError(c, err)
		return booking.Booking{}, false
	}
	return b, true
}

// GET /api/bookings/:id
func (a *App) GetBookingHandler(c *gin.Context) {
	b, ok := a.loadBooking(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /api/bookings/:id/confirm
func (a *App) ConfirmBookingHandler(c *gin.Context) {
	if _, ok := a.loadBooking(c); !ok {
		return
	}
	b, err := a.Bookings.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /api/bookings/:id/cancel and DELETE /api/bookings/:id
func (a *App) CancelBookingHandler(c *gin.Context) {
	var req cancelReq
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		// The body is optional; an empty one decodes to io.EOF.
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, err.Error())
			return
		}
	}
	if _, ok := a.loadBooking(c); !ok {
		return
	}
	b, err := a.Bookings.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /api/bookings/:id/reschedule and PATCH /api/bookings/:id
func (a *App) RescheduleBookingHandler(c *gin.Context) {
	var req rescheduleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if _, ok := a.loadBooking(c); !ok {
		return
	}
	b, err := a.Bookings.Reschedule(c.Request.Context(), booking.RescheduleRequest{
		BookingID: c.Param("id"),
		Interval:  intervalOf(req.StartTime, req.EndTime),
		Timezone:  req.Timezone,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
