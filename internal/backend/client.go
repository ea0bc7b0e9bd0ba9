// Package backend reports transfers to the platform's REST API so it can
// credit the user's balance.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a backend request when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Endpoint paths, relative to the base URL.
const (
	PathDeposit  = "/crypto/depositDBC"
	PathSend     = "/api/crypto/sendDBC"
	PathWithdraw = "/crypto/withdraw-crypto"
)

// ErrBackendUnreachable is returned when the backend could not be reached or
// answered with a non-2xx status.
var ErrBackendUnreachable = errors.New("backend unreachable")

// HTTPError is a non-2xx backend response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Route selects the endpoint a transfer is reported to.
type Route int

const (
	// RouteDeposit credits a token deposit to the sender's account.
	RouteDeposit Route = iota
	// RouteSend records a native transfer between two addresses.
	RouteSend
)

func (r Route) String() string {
	if r == RouteSend {
		return "send"
	}
	return "deposit"
}

// Transfer is a submitted on-chain transfer. Amount is the decimal amount
// the user entered, not base units.
type Transfer struct {
	Route     Route
	Sender    string `validate:"required,eth_addr"`
	Recipient string `validate:"required_if=Route 1,omitempty,eth_addr"`
	Amount    string `validate:"required,numeric"`
	TxHash    string `validate:"required,hexadecimal,len=66"`
}

// Withdrawal asks the backend to pay out from the user's balance.
type Withdrawal struct {
	Amount    string `json:"amount" validate:"required,numeric"`
	Recipient string `json:"recipient" validate:"required,eth_addr"`
}

// Ack is a 2xx backend answer.
type Ack struct {
	StatusCode int
	RequestID  string
	Body       json.RawMessage
}

type depositBody struct {
	UserAddress string `json:"userAddress"`
	Amount      string `json:"amount"`
	TxHash      string `json:"txHash"`
}

type sendBody struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	TxHash    string `json:"txHash"`
}

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string
	// Token is sent as a bearer token when set.
	Token string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
	// Timeout applies to the default client; 0 means DefaultTimeout.
	Timeout time.Duration
}

// Client posts to the backend.
type Client struct {
	baseURL  string
	token    string
	client   *http.Client
	validate *validator.Validate
}

// NewClient creates a backend client.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		token:    opts.Token,
		client:   hc,
		validate: validator.New(),
	}
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

// PostTransfer reports t on the endpoint its route selects.
func (c *Client) PostTransfer(ctx context.Context, t Transfer) (*Ack, error) {
	if err := c.validate.Struct(t); err != nil {
		return nil, fmt.Errorf("invalid transfer: %w", err)
	}
	switch t.Route {
	case RouteDeposit:
		return c.post(ctx, PathDeposit, depositBody{UserAddress: t.Sender, Amount: t.Amount, TxHash: t.TxHash})
	case RouteSend:
		return c.post(ctx, PathSend, sendBody{Sender: t.Sender, Recipient: t.Recipient, Amount: t.Amount, TxHash: t.TxHash})
	default:
		return nil, fmt.Errorf("unknown route %d", t.Route)
	}
}

// RequestWithdraw asks the backend to pay w.Amount to w.Recipient.
func (c *Client) RequestWithdraw(ctx context.Context, w Withdrawal) (*Ack, error) {
	if err := c.validate.Struct(w); err != nil {
		return nil, fmt.Errorf("invalid withdrawal: %w", err)
	}
	return c.post(ctx, PathWithdraw, w)
}

func (c *Client) post(ctx context.Context, path string, payload any) (*Ack, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logger := log.With().Str("path", path).Str("request_id", requestID).Logger()
	logger.Debug().Msg("backend request")

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Debug().Err(err).Msg("backend request failed")
		return nil, fmt.Errorf("%w: %w", ErrBackendUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrBackendUnreachable, err)
	}
	logger.Debug().Int("status", resp.StatusCode).Msg("backend response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnreachable, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		})
	}
	ack := &Ack{StatusCode: resp.StatusCode, RequestID: requestID}
	if json.Valid(respBody) {
		ack.Body = respBody
	}
	return ack, nil
}
