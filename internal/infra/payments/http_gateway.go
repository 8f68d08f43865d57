package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"doorly/internal/app/policies"
	"doorly/internal/domain/shared/money"
)

// HTTPGateway talks to the payment provider's REST API.
type HTTPGateway struct {
	Client   *http.Client
	Endpoint string
	Token    string
	Logger   *slog.Logger
}

type intentRequest struct {
	ExternalReference string `json:"external_reference"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
}

type intentResponse struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"init_point"`
}

type refundRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (g *HTTPGateway) CreateIntent(ctx context.Context, bookingID string, amount money.Money, idempotencyKey string) (policies.PaymentIntent, error) {
	var out intentResponse
	req := intentRequest{ExternalReference: bookingID, Amount: amount.Amount, Currency: amount.Currency}
	if err := g.post(ctx, "/preferences", idempotencyKey, req, &out); err != nil {
		g.logError("payment intent request failed", bookingID, err)
		return policies.PaymentIntent{}, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return policies.PaymentIntent{}, errors.New("payments: gateway returned no reference")
	}
	return policies.PaymentIntent{Reference: out.ID, CheckoutURL: out.CheckoutURL}, nil
}

func (g *HTTPGateway) Refund(ctx context.Context, reference string, amount money.Money, idempotencyKey string) error {
	path := "/payments/" + reference + "/refunds"
	if err := g.post(ctx, path, idempotencyKey, refundRequest{Amount: amount.Amount, Currency: amount.Currency}, nil); err != nil {
		g.logError("refund request failed", reference, err)
		return err
	}
	return nil
}

// post sends idempotencyKey so the provider drops requests repeated by a
// retried command.
func (g *HTTPGateway) post(ctx context.Context, path, idempotencyKey string, payload any, out any) error {
	if g == nil || g.Client == nil {
		return errors.New("payments: http client not configured")
	}
	if g.Endpoint == "" {
		return errors.New("payments: endpoint not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(g.Endpoint, "/")+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	if g.Token != "" {
		request.Header.Set("Authorization", "Bearer "+g.Token)
	}
	if idempotencyKey != "" {
		request.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := g.Client.Do(request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("payments: gateway returned status %d: %s", resp.StatusCode, string(snippet))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (g *HTTPGateway) logError(msg, ref string, err error) {
	if g.Logger == nil {
		return
	}
	g.Logger.Error(msg, "reference", ref, "error", err)
}

var _ policies.PaymentsPort = (*HTTPGateway)(nil)
