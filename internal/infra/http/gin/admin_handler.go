package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"doorly/internal/app/commands"
	bookingapp "doorly/internal/app/handlers/booking"
)

type AdminHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type resolveDisputeRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}

func (h AdminHandler) ResolveDispute(c *gin.Context) {
	admin, ok := requireAdmin(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req resolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	cmd := bookingapp.ResolveDisputeCommand{
		BookingID:  strings.TrimSpace(c.Param("id")),
		AdminID:    admin.ID,
		Resolution: strings.ToLower(strings.TrimSpace(req.Resolution)),
	}
	result, err := commands.Dispatch[bookingapp.ResolveDisputeCommand, *bookingapp.DisputeResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, "dispute resolution failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AdminHTTP = (*AdminHandler)(nil)
