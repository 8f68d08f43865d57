package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	bookingapp "doorly/internal/app/handlers/booking"
	paymentsapp "doorly/internal/app/handlers/payments"
	"doorly/internal/app/middleware"
	"doorly/internal/app/policies"
	"doorly/internal/app/uow"
	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
	domainreviews "doorly/internal/domain/reviews"
)

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// statusFor maps application errors to HTTP status codes. Reservation
// rejections carry their reason so clients can tell an overlap from bad input.
func statusFor(err error) (int, string) {
	if reason, ok := domainbooking.RejectionReasonOf(err); ok {
		switch reason {
		case domainbooking.RejectOverlap:
			return http.StatusConflict, string(reason)
		case domainbooking.RejectRateMissing:
			return http.StatusUnprocessableEntity, string(reason)
		default:
			return http.StatusBadRequest, string(reason)
		}
	}
	switch {
	case errors.Is(err, middleware.ErrValidation),
		errors.Is(err, domainreviews.ErrInvalidRating),
		errors.Is(err, domainreviews.ErrCommentTooShort),
		errors.Is(err, domainbooking.ErrDisputeReasonRequired),
		errors.Is(err, domainbooking.ErrUnknownResolution),
		errors.Is(err, paymentsapp.ErrBookingUnidentified):
		return http.StatusBadRequest, ""
	case errors.Is(err, middleware.ErrUnauthenticated):
		return http.StatusUnauthorized, ""
	case errors.Is(err, domainbooking.ErrNotParticipant),
		errors.Is(err, domainreviews.ErrNotRenter):
		return http.StatusForbidden, ""
	case errors.Is(err, domainbooking.ErrNotFound),
		errors.Is(err, domainlistings.ErrNotFound),
		errors.Is(err, domainreviews.ErrNotFound):
		return http.StatusNotFound, ""
	case errors.Is(err, domainbooking.ErrInvalidTransition),
		errors.Is(err, domainbooking.ErrConcurrentModification),
		errors.Is(err, domainreviews.ErrAlreadyReviewed),
		errors.Is(err, bookingapp.ErrListingNotBookable):
		return http.StatusConflict, ""
	case errors.Is(err, domainreviews.ErrWindowClosed),
		errors.Is(err, middleware.ErrIdempotencyKeyReused):
		return http.StatusUnprocessableEntity, ""
	case errors.Is(err, policies.ErrPaymentGateway):
		return http.StatusBadGateway, ""
	case errors.Is(err, policies.ErrLockTimeout),
		errors.Is(err, uow.ErrUnitOfWorkMissing):
		return http.StatusServiceUnavailable, ""
	}
	return http.StatusInternalServerError, ""
}

// writeError responds with the mapped status. Server errors are logged and
// their details hidden from the client.
func writeError(c *gin.Context, logger *slog.Logger, msg string, err error) {
	status, reason := statusFor(err)
	_ = c.Error(err)
	body := errorResponse{Error: err.Error(), Reason: reason}
	if status >= http.StatusInternalServerError {
		if logger != nil {
			fields := []any{"status", status, "error", err, "path", c.FullPath()}
			if p, ok := currentPrincipal(c); ok {
				fields = append(fields, "user_id", p.ID)
			}
			logger.Error(msg, fields...)
		}
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	}
	c.JSON(status, body)
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, errorResponse{Error: what + " unavailable"})
}
