package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"doorly/internal/app/commands"
	"doorly/internal/app/dto"
	reviewsapp "doorly/internal/app/handlers/reviews"
	"doorly/internal/app/queries"
)

type ReviewsHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type submitReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h ReviewsHandler) Submit(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	cmd := reviewsapp.SubmitReviewCommand{
		BookingID: strings.TrimSpace(c.Param("id")),
		AuthorID:  user.ID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	review, err := commands.Dispatch[reviewsapp.SubmitReviewCommand, dto.Review](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("review submit failed", "booking_id", cmd.BookingID, "error", err)
		}
		writeError(c, h.Logger, "review submit failed", err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h ReviewsHandler) ListByListing(c *gin.Context) {
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	query := reviewsapp.ListListingReviewsQuery{
		ListingID: c.Param("id"),
		Limit:     parsePositiveInt(c.Query("limit"), 20),
		Offset:    parsePositiveInt(c.Query("offset"), 0),
	}
	result, err := queries.Ask[reviewsapp.ListListingReviewsQuery, dto.ReviewCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, "reviews query failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

var _ ReviewsHTTP = ReviewsHandler{}
