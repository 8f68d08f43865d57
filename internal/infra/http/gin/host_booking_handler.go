package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"doorly/internal/app/dto"
	bookingapp "doorly/internal/app/handlers/booking"
	"doorly/internal/app/queries"
)

// HostBookingHandler serves the host dashboard. Any authenticated user is a
// host of the listings they own, so an empty result is normal.
type HostBookingHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h HostBookingHandler) List(c *gin.Context) {
	host, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	query := bookingapp.ListHostBookingsQuery{
		HostID: host.ID,
		Status: strings.ToUpper(strings.TrimSpace(c.Query("status"))),
	}
	result, err := queries.Ask[bookingapp.ListHostBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, "host bookings query failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ HostBookingHTTP = HostBookingHandler{}
