// internal/payments/gateway.go

// Package payments talks to the payment gateway and turns its webhook events
// into booking orchestrator calls.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// UpstreamGatewayError reports a failed or non-2xx gateway call. Webhook
// handling treats it as retryable.
type UpstreamGatewayError struct {
	Op     string
	Status int
	Err    error
}

func (e UpstreamGatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gateway %s failed with status %d", e.Op, e.Status)
}

func (e UpstreamGatewayError) Unwrap() error { return e.Err }

// Payment is the gateway's payment resource, reduced to the fields the
// booking engine consumes.
type Payment struct {
	ID              string `json:"id"`
	Amount          int64  `json:"amount"`
	Status          string `json:"status"`
	Method          string `json:"method"`
	PaymentIntentID string `json:"payment_intent_id"`
	BookingData     string `json:"booking_data"` // JSON-encoded booking intent metadata
}

// CheckoutSession is the gateway's checkout-session resource. A paid session
// may embed its payments directly or only reference them by id.
type CheckoutSession struct {
	ID              string    `json:"id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	PaymentIDs      []string  `json:"payment_ids"`
	Payments        []Payment `json:"payments"`
	BookingData     string    `json:"booking_data"`
}

type PaymentMethod struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

type QRParams struct {
	AmountCents  int64  `json:"amount"`
	CustomerName string `json:"customer_name"`
	Notes        string `json:"notes"`
}

type QRCode struct {
	ID       string `json:"id"`
	ImageURL string `json:"image_url"`
	Notes    string `json:"notes"`
	Kind     string `json:"kind"`
}

// Client is the narrow gateway surface the engine consumes.
type Client interface {
	GetPayment(ctx context.Context, id string) (*Payment, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	GetPaymentMethod(ctx context.Context, id string) (*PaymentMethod, error)
	GenerateStaticQR(ctx context.Context, params QRParams) (*QRCode, error)
}

// HTTPClient implements Client against the gateway's JSON API with per-call
// timeouts and bounded retry, so a hung upstream cannot pin a webhook
// delivery indefinitely.
type HTTPClient struct {
	baseURL    string
	secretKey  string
	maxRetries int
	httpClient *http.Client
}

func NewHTTPClient(baseURL, secretKey string, requestTimeout time.Duration, maxRetries int) *HTTPClient {
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &HTTPClient{
		baseURL:    baseURL,
		secretKey:  secretKey,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *HTTPClient) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+id, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (c *HTTPClient) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := c.do(ctx, http.MethodGet, "/v1/checkout_sessions/"+id, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *HTTPClient) GetPaymentMethod(ctx context.Context, id string) (*PaymentMethod, error) {
	var method PaymentMethod
	if err := c.do(ctx, http.MethodGet, "/v1/payment_methods/"+id, nil, &method); err != nil {
		return nil, err
	}
	return &method, nil
}

func (c *HTTPClient) GenerateStaticQR(ctx context.Context, params QRParams) (*QRCode, error) {
	var qr QRCode
	if err := c.do(ctx, http.MethodPost, "/v1/qr_codes", params, &qr); err != nil {
		return nil, err
	}
	return &qr, nil
}

// do issues one gateway call with bounded exponential backoff. Client errors
// (4xx) never retry; transport failures and 5xx responses retry up to
// maxRetries attempts.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode gateway request: %w", err)
		}
		payload = encoded
	}

	op := method + " " + path
	backoff := 250 * time.Millisecond
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return UpstreamGatewayError{Op: op, Err: ctx.Err()}
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		status, err := c.doOnce(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if status >= 400 && status < 500 {
			return UpstreamGatewayError{Op: op, Status: status}
		}
		// A malformed body on a successful response is not transient;
		// redelivering the request returns the same body.
		if status >= 200 && status < 300 {
			return UpstreamGatewayError{Op: op, Err: err}
		}
		log.Ctx(ctx).Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Msg("Gateway call failed")
	}
	return UpstreamGatewayError{Op: op, Err: lastErr}
}

func (c *HTTPClient) doOnce(ctx context.Context, method, path string, payload []byte, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.SetBasicAuth(c.secretKey, "")
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return resp.StatusCode, fmt.Errorf("decode gateway response: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode gateway resource: %w", err)
	}
	return resp.StatusCode, nil
}
