package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"doorly/internal/app/dto"
	availabilityapp "doorly/internal/app/handlers/availability"
	"doorly/internal/app/queries"
)

type AvailabilityHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	query := availabilityapp.GetAvailabilityQuery{ListingID: c.Param("id")}
	result, err := queries.Ask[availabilityapp.GetAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, "availability query failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
