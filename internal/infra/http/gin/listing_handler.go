package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"doorly/internal/app/dto"
	listingapp "doorly/internal/app/handlers/listings"
	"doorly/internal/app/queries"
)

// ListingHandler wires listing queries to HTTP.
type ListingHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h ListingHandler) Get(c *gin.Context) {
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	query := listingapp.GetListingQuery{ListingID: c.Param("id")}
	result, err := queries.Ask[listingapp.GetListingQuery, dto.Listing](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, "listing query failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Quote prices ?start=YYYY-MM-DD&end=YYYY-MM-DD without reserving.
func (h ListingHandler) Quote(c *gin.Context) {
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	query := listingapp.GetQuoteQuery{
		ListingID: c.Param("id"),
		StartDate: c.Query("start"),
		EndDate:   c.Query("end"),
	}
	result, err := queries.Ask[listingapp.GetQuoteQuery, dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, "quote failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ListingHTTP = ListingHandler{}
