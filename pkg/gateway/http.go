package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/metrics"
)

const maxResponseSize = 1 << 20

// Error is a non-2xx answer from the gateway.
type Error struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// HTTPClient calls the gateway's REST API with basic auth on the secret key.
type HTTPClient struct {
	BaseURL   string
	SecretKey string
	HTTP      *http.Client
	Logger    *slog.Logger
}

// NewHTTPClient creates an HTTPClient.
func NewHTTPClient(baseURL, secretKey string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secretKey,
		HTTP:      &http.Client{Timeout: timeout},
		Logger:    logger,
	}
}

var _ Client = (*HTTPClient)(nil)

// Confirm approves an authorized payment.
func (c *HTTPClient) Confirm(ctx context.Context, req ConfirmRequest) (*Payment, error) {
	return c.do(ctx, "confirm", "/v1/payments/confirm", req, "")
}

// Cancel cancels or partially refunds a payment.
func (c *HTTPClient) Cancel(ctx context.Context, req CancelRequest) (*Payment, error) {
	path := "/v1/payments/" + url.PathEscape(req.PaymentKey) + "/cancel"
	return c.do(ctx, "cancel", path, req, req.IdempotencyKey)
}

func (c *HTTPClient) do(ctx context.Context, op, path string, body any, idempotencyKey string) (*Payment, error) {
	start := time.Now()
	outcome := "error"
	defer func() {
		metrics.GatewayRequestDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.SecretKey+":")))
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call gateway %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gwErr := &Error{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(raw, gwErr); err != nil || gwErr.Code == "" {
			gwErr.Code = "UNKNOWN"
			gwErr.Message = strings.TrimSpace(string(raw))
		}
		outcome = "rejected"
		c.Logger.WarnContext(ctx, "gateway rejected request", "operation", op, "status", resp.StatusCode, "code", gwErr.Code)
		return nil, gwErr
	}

	var payment Payment
	if err := json.Unmarshal(raw, &payment); err != nil {
		return nil, fmt.Errorf("failed to decode gateway %s response: %w", op, err)
	}
	outcome = "ok"
	return &payment, nil
}
