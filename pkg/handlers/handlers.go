// Package handlers holds what the HTTP handler packages share: JSON
// encoding, request decoding and the mapping of domain errors to status
// codes.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/chris/prepaid-credit-ledger/pkg/api"
	"github.com/chris/prepaid-credit-ledger/pkg/audit"
	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/gateway"
	"github.com/chris/prepaid-credit-ledger/pkg/middleware"
	"github.com/chris/prepaid-credit-ledger/pkg/orders"
)

// WriteJSON encodes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}

// Decode reads a JSON body into v and checks its validate tags.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &credit.ValidationError{Message: fmt.Sprintf("Invalid request body: %v", err)}
	}
	return Validate(r.Context(), v)
}

// Caller returns the identity set by middleware.Identify.
func Caller(r *http.Request) middleware.Identity {
	id, _ := middleware.IdentityFrom(r.Context())
	return id
}

// Actor is the caller as recorded in the audit trail. RemoteAddr is the
// client address once chi's RealIP middleware has run.
func Actor(r *http.Request) audit.Actor {
	return audit.Actor{UserID: Caller(r).UserID, IPAddress: r.RemoteAddr}
}

// WriteError maps err to a status code and an api.ErrorResponse.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	WriteJSON(w, status, body)
}

func errorResponse(err error) (int, api.ErrorResponse) {
	var (
		verr   *credit.ValidationError
		insuff *credit.InsufficientCreditError
		paid   *credit.InsufficientPaidBalanceError
		locked *credit.CreditLockedError
		gwErr  *gateway.Error
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, api.ErrorResponse{Error: verr.Message, Field: verr.Field}
	case errors.As(err, &insuff):
		return http.StatusUnprocessableEntity, api.ErrorResponse{
			Error: "Insufficient credit", Balance: &insuff.Balance, Required: &insuff.Required,
		}
	case errors.As(err, &paid):
		return http.StatusUnprocessableEntity, api.ErrorResponse{
			Error: "Refund exceeds paid balance", Balance: &paid.Available, Required: &paid.Required,
		}
	case errors.As(err, &locked):
		return http.StatusForbidden, api.ErrorResponse{
			Error: fmt.Sprintf("Credit use is locked: %s", locked.Reason), LockedAt: locked.LockedAt,
		}
	case errors.Is(err, credit.ErrSelfApproval):
		return http.StatusForbidden, api.ErrorResponse{Error: "Admins cannot decide on their own charge orders"}
	case errors.Is(err, credit.ErrNoRefundableOrders):
		return http.StatusUnprocessableEntity, api.ErrorResponse{Error: "No refundable orders"}
	case errors.Is(err, credit.ErrAmountMismatch), errors.Is(err, credit.ErrDepositCodeMismatch):
		return http.StatusUnprocessableEntity, api.ErrorResponse{Error: err.Error()}
	case errors.Is(err, credit.ErrNotFound):
		return http.StatusNotFound, api.ErrorResponse{Error: err.Error()}
	case errors.Is(err, credit.ErrAlreadyMatched),
		errors.Is(err, credit.ErrConcurrencyConflict),
		errors.Is(err, credit.ErrInvalidTransition),
		errors.Is(err, credit.ErrChargeOrderCanceled):
		return http.StatusConflict, api.ErrorResponse{Error: err.Error()}
	case errors.Is(err, credit.ErrWebhookSecretMismatch):
		return http.StatusBadRequest, api.ErrorResponse{Error: "Webhook secret mismatch"}
	case errors.Is(err, orders.ErrDepositCodesExhausted):
		return http.StatusServiceUnavailable, api.ErrorResponse{Error: "No deposit code available, try again later"}
	case errors.As(err, &gwErr):
		return http.StatusBadGateway, api.ErrorResponse{Error: fmt.Sprintf("Payment gateway rejected the request: %s", gwErr.Message)}
	default:
		return http.StatusInternalServerError, api.ErrorResponse{Error: "Internal server error"}
	}
}
