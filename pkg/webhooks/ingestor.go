// Package webhooks records payment gateway callbacks exactly once and feeds
// the payment outcomes they carry into the settlement coordinator.
package webhooks

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/gateway"
	"github.com/chris/prepaid-credit-ledger/pkg/metrics"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/settlement"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
)

// Event is one gateway callback delivery.
type Event struct {
	TransmissionID string
	EventType      string
	OrderID        string
	TransactionKey string
	Status         gateway.Status
	Secret         string
	// Payload is the raw body, kept for audits.
	Payload string
}

// BalanceInvalidator drops cached balances after a webhook credited an
// organization.
type BalanceInvalidator interface {
	InvalidateBalance(organizationID string)
}

// Ingestor dedupes and processes gateway callbacks.
type Ingestor struct {
	store    storage.ApiStore
	coord    *settlement.Coordinator
	balances BalanceInvalidator
	logger   *slog.Logger
}

// NewIngestor creates an Ingestor. balances may be nil.
func NewIngestor(store storage.ApiStore, coord *settlement.Coordinator, balances BalanceInvalidator, logger *slog.Logger) *Ingestor {
	return &Ingestor{store: store, coord: coord, balances: balances, logger: logger}
}

var pendingPayment = []models.CreditOrderStatus{models.CreditOrderCreated, models.CreditOrderWaitingForDeposit}

// Ingest stores ev under its transmission id and, on first delivery, applies
// it. Redeliveries return the recorded status without doing anything. The
// only errors returned are validation, a secret mismatch, and failures to
// record the event itself; processing failures are recorded as FAILED and
// acknowledged so the gateway stops retrying.
func (i *Ingestor) Ingest(ctx context.Context, ev Event) (models.WebhookProcessStatus, error) {
	if ev.TransmissionID == "" {
		return "", credit.NewValidationError("transmissionId", "is required")
	}

	existing, err := i.store.GetWebhookEvent(ctx, ev.TransmissionID)
	if err == nil {
		metrics.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
		return existing.ProcessStatus, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("failed to get webhook event: %w", err)
	}

	now := i.coord.Now()
	created, err := i.store.CreateWebhookEvent(ctx, &models.WebhookEvent{
		TransmissionID: ev.TransmissionID,
		EventType:      ev.EventType,
		OrderID:        ev.OrderID,
		TransactionKey: ev.TransactionKey,
		PaymentStatus:  string(ev.Status),
		ProcessStatus:  models.WebhookReceived,
		Payload:        ev.Payload,
		ReceivedAt:     now,
	})
	if err != nil {
		return "", fmt.Errorf("failed to record webhook event: %w", err)
	}
	if !created {
		// Lost the insert race to a concurrent delivery.
		metrics.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
		return models.WebhookReceived, nil
	}

	status, detail, procErr := i.process(ctx, ev)
	if errors.Is(procErr, credit.ErrWebhookSecretMismatch) {
		i.logger.WarnContext(ctx, "webhook secret mismatch", "transmission_id", ev.TransmissionID, "order_id", ev.OrderID)
	} else if procErr != nil {
		i.logger.ErrorContext(ctx, "webhook processing failed", "transmission_id", ev.TransmissionID, "order_id", ev.OrderID, "error", procErr)
		detail = procErr.Error()
		procErr = nil
	}

	if err := i.store.UpdateWebhookEventStatus(ctx, ev.TransmissionID, status, detail, i.coord.Now()); err != nil {
		return status, fmt.Errorf("failed to update webhook event: %w", err)
	}
	metrics.WebhookEventsTotal.WithLabelValues(string(status)).Inc()
	i.logger.InfoContext(ctx, "webhook processed",
		"transmission_id", ev.TransmissionID, "order_id", ev.OrderID, "payment_status", ev.Status, "process_status", status)
	return status, procErr
}

func (i *Ingestor) process(ctx context.Context, ev Event) (models.WebhookProcessStatus, string, error) {
	if ev.OrderID == "" {
		return models.WebhookIgnored, "no order id", nil
	}
	order, err := i.store.GetCreditOrder(ctx, ev.OrderID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.WebhookIgnored, "unknown order", nil
	}
	if err != nil {
		return models.WebhookFailed, "", fmt.Errorf("failed to get credit order: %w", err)
	}

	// Only orders that went through confirm carry a secret; without one the
	// callback cannot be authenticated.
	if order.Secret == "" || subtle.ConstantTimeCompare([]byte(order.Secret), []byte(ev.Secret)) != 1 {
		return models.WebhookFailed, "secret mismatch", credit.ErrWebhookSecretMismatch
	}

	var result settlement.PaymentResult
	switch ev.Status {
	case gateway.StatusDone:
		result.Status = models.CreditOrderDone
	case gateway.StatusCanceled, gateway.StatusAborted:
		result.Status = models.CreditOrderCanceled
	case gateway.StatusExpired:
		result.Status = models.CreditOrderExpired
	case gateway.StatusWaitingForDeposit:
		return models.WebhookProcessed, "awaiting deposit", nil
	default:
		return models.WebhookIgnored, fmt.Sprintf("unhandled payment status %q", ev.Status), nil
	}
	result.PaymentKey = order.PaymentKey

	applied, err := i.coord.ApplyPayment(ctx, order, pendingPayment, result)
	if err != nil {
		return models.WebhookFailed, "", err
	}
	if !applied {
		return models.WebhookProcessed, fmt.Sprintf("order already %s", order.Status), nil
	}
	if result.Status == models.CreditOrderDone && i.balances != nil {
		i.balances.InvalidateBalance(order.OrganizationID)
	}
	return models.WebhookProcessed, "", nil
}
