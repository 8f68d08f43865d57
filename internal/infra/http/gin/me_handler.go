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

type MeHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h MeHandler) ListBookings(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	query := bookingapp.ListRenterBookingsQuery{
		RenterID: user.ID,
		Status:   strings.ToUpper(strings.TrimSpace(c.Query("status"))),
	}
	result, err := queries.Ask[bookingapp.ListRenterBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, "me bookings query failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ MeHTTP = (*MeHandler)(nil)
