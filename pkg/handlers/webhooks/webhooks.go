package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/chris/prepaid-credit-ledger/pkg/api"
	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/handlers"
	"github.com/chris/prepaid-credit-ledger/pkg/mapping"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	paymentwebhooks "github.com/chris/prepaid-credit-ledger/pkg/webhooks"
	"github.com/go-chi/chi/v5"
)

// HeaderTransmissionID carries the gateway's unique id for one delivery.
const HeaderTransmissionID = "X-Webhook-Transmission-Id"

// DefaultMaxBodyBytes bounds a callback body.
const DefaultMaxBodyBytes int64 = 64 << 10

// Ingester records and applies one gateway callback.
type Ingester interface {
	Ingest(ctx context.Context, ev paymentwebhooks.Event) (models.WebhookProcessStatus, error)
}

// WebhooksHandler receives payment gateway callbacks. It sits outside the
// identity middleware; callbacks are authenticated by the order secret.
type WebhooksHandler struct {
	Ingester     Ingester
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// NewWebhooksHandler creates a new WebhooksHandler.
func NewWebhooksHandler(ingester Ingester, maxBodyBytes int64, logger *slog.Logger) *WebhooksHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &WebhooksHandler{Ingester: ingester, MaxBodyBytes: maxBodyBytes, Logger: logger}
}

// Routes mounts the callback endpoint.
func (h *WebhooksHandler) Routes(r chi.Router) {
	r.Post("/webhooks/payments", h.HandlePayment)
}

// HandlePayment answers 200 once the delivery is recorded, whatever its
// processing outcome, so the gateway stops retrying. Only a missing
// transmission id, a malformed body or a secret mismatch get a 400.
func (h *WebhooksHandler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.WriteJSON(w, http.StatusRequestEntityTooLarge, api.ErrorResponse{Error: "Request body too large"})
			return
		}
		handlers.WriteJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "Error reading request body"})
		return
	}

	var payload api.WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.Logger.WarnContext(ctx, "malformed webhook body", "error", err)
		handlers.WriteJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "Invalid request body"})
		return
	}

	ev := mapping.ToWebhookEvent(r.Header.Get(HeaderTransmissionID), &payload, raw)
	status, err := h.Ingester.Ingest(ctx, ev)
	if err != nil {
		if errors.Is(err, credit.ErrWebhookSecretMismatch) {
			h.Logger.WarnContext(ctx, "rejected webhook", "transmission_id", ev.TransmissionID, "order_id", ev.OrderID)
		}
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, api.WebhookAck{TransmissionID: ev.TransmissionID, Status: status})
}
