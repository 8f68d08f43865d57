package ginserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"doorly/internal/app/commands"
	paymentsapp "doorly/internal/app/handlers/payments"
	"doorly/internal/infra/payments"
)

const maxWebhookBody = 64 << 10

// PaymentWebhookHandler receives gateway notifications. Statuses that do not
// settle a payment are acknowledged with 202; events that contradict the
// booking state or lost their dates get 409 so they show up in gateway logs.
type PaymentWebhookHandler struct {
	Commands commands.Bus
	Secret   string
	Logger   *slog.Logger
}

func (h PaymentWebhookHandler) Webhook(c *gin.Context) {
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "cannot read body"})
		return
	}
	if err := payments.Verify(h.Secret, body, c.GetHeader(payments.SignatureHeader)); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("payment webhook signature rejected", "request_id", c.GetString("request_id"))
		}
		c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}
	var event payments.Event
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: payments.ErrMalformedEvent.Error()})
		return
	}
	cmd, err := event.Command()
	switch {
	case errors.Is(err, payments.ErrIgnoredStatus):
		c.JSON(http.StatusAccepted, gin.H{"status": "ignored"})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := commands.Dispatch[paymentsapp.ApplyPaymentEventCommand, *paymentsapp.PaymentEventResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, "payment event failed", err)
		return
	}
	if result.Anomaly || result.Conflict {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PaymentsHTTP = PaymentWebhookHandler{}
