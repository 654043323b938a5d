package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"booking-engine/internal/scheduling"
)

// parseDateRange reads the inclusive local date range of a slot query. It
// writes the 400 response itself when the range is unusable.
func parseDateRange(c *gin.Context) (from, to scheduling.Date, ok bool) {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		badRequest(c, "from and to required (YYYY-MM-DD)")
		return from, to, false
	}
	from, err := scheduling.ParseDate(fromStr)
	if err != nil {
		badRequest(c, "invalid from")
		return from, to, false
	}
	to, err = scheduling.ParseDate(toStr)
	if err != nil {
		badRequest(c, "invalid to")
		return from, to, false
	}
	return from, to, true
}

func intervalOf(start, end time.Time) scheduling.Interval {
	return scheduling.Interval{Start: start, End: end}
}

// GET /public/calendars/:slug/slots?from=YYYY-MM-DD&to=YYYY-MM-DD
func (a *App) PublicSlotsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	cfg, err := a.Bookings.CalendarBySlug(ctx, c.Param("slug"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	slots, err := a.Bookings.SlotsBySlug(ctx, cfg.Slug, from, to)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slotsResponse{CalendarID: cfg.ID, Timezone: cfg.Timezone, DurationMinutes: cfg.DurationMinutes, Slots: slots})
}

// POST /public/calendars/:slug/bookings
func (a *App) PublicCreateBookingHandler(c *gin.Context) {
	ctx := c.Request.Context()
	var req publicBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cfg, err := a.Bookings.CalendarBySlug(ctx, c.Param("slug"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	b, err := a.Bookings.Create(ctx, req.toRequest(cfg.ID))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPublic(b))
}

// POST /public/calendars/:slug/cancel
func (a *App) PublicCancelHandler(c *gin.Context) {
	var req tokenCancelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	b, err := a.Bookings.CancelByToken(c.Request.Context(), c.Param("slug"), req.Token, req.Reason)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPublic(b))
}
