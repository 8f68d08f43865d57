package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"doorly/internal/app/commands"
	"doorly/internal/app/dto"
	bookingapp "doorly/internal/app/handlers/booking"
	"doorly/internal/app/queries"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

// reserveRequest never carries an amount; the server prices the stay.
type reserveRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

type disputeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h BookingHandler) Reserve(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	cmd := bookingapp.RequestReservationCommand{
		ListingID:       strings.TrimSpace(c.Param("id")),
		RenterID:        user.ID,
		StartDate:       strings.TrimSpace(req.StartDate),
		EndDate:         strings.TrimSpace(req.EndDate),
		IdempotencyKeyV: c.GetHeader(IdempotencyHeader),
	}
	result, err := commands.Dispatch[bookingapp.RequestReservationCommand, *bookingapp.ReservationResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, "reservation failed", err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	query := bookingapp.GetBookingQuery{BookingID: strings.TrimSpace(c.Param("id")), UserID: user.ID}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, "booking lookup failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	cmd := bookingapp.CancelBookingCommand{
		BookingID:       strings.TrimSpace(c.Param("id")),
		UserID:          user.ID,
		IdempotencyKeyV: c.GetHeader(IdempotencyHeader),
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.CancellationResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, "cancellation failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) OpenDispute(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req disputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	cmd := bookingapp.OpenDisputeCommand{
		BookingID:  strings.TrimSpace(c.Param("id")),
		ReporterID: user.ID,
		Reason:     strings.TrimSpace(req.Reason),
	}
	result, err := commands.Dispatch[bookingapp.OpenDisputeCommand, *bookingapp.DisputeResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, "dispute failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ReviewWindow(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	query := bookingapp.GetReviewWindowQuery{BookingID: strings.TrimSpace(c.Param("id")), UserID: user.ID}
	result, err := queries.Ask[bookingapp.GetReviewWindowQuery, dto.ReviewWindow](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, "review window lookup failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ BookingHTTP = BookingHandler{}
