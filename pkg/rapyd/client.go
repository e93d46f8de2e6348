package rapyd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kudupay/kuduq-backend/pkg/httpx"
	"github.com/kudupay/kuduq-backend/pkg/obs"
)

// ErrNetwork marks transport-level failures (connect, timeout). The client
// never retries; retry is a caller concern and needs a fresh idempotency key.
var ErrNetwork = errors.New("rapyd: network error")

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rapyd: API error %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

// ShapeError is a 2xx response whose body matched none of the known
// historical shapes for that endpoint.
type ShapeError struct {
	Endpoint string
	Reason   string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("rapyd: unexpected response shape from %s: %s", e.Endpoint, e.Reason)
}

type Config struct {
	APIToken string
	BaseURL  string
	// Timeout applies to general calls; provisioning and transfers use
	// LongTimeout because the provider settles on-chain.
	Timeout     time.Duration
	LongTimeout time.Duration
}

// Client is a typed adapter over the provider's REST API. One method per
// capability; each normalizes the small closed set of response shapes the
// provider has shipped over time into one canonical form.
type Client struct {
	http        httpx.Client
	baseURL     string
	token       string
	longTimeout time.Duration
	tracer      trace.Tracer
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.LongTimeout <= 0 {
		cfg.LongTimeout = 60 * time.Second
	}
	return &Client{
		http:        httpx.New(httpx.Config{Timeout: cfg.Timeout}),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		token:       cfg.APIToken,
		longTimeout: cfg.LongTimeout,
		tracer:      obs.Tracer("github.com/kudupay/kuduq-backend/rapyd"),
	}
}

// NewClientWithHTTP injects a transport, for tests.
func NewClientWithHTTP(cfg Config, hc httpx.Client) *Client {
	c := NewClient(cfg)
	c.http = hc
	return c
}

func (c *Client) request(ctx context.Context, method, path string, body any, timeout time.Duration) ([]byte, error) {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")

	ctx, span := c.tracer.Start(ctx, "rapyd."+method+" "+path,
		trace.WithAttributes(attribute.String("http.method", method)))
	defer span.End()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("rapyd: marshal request: %w", err)
		}
	}

	resp, err := c.http.Do(ctx, httpx.Request{
		Method: method,
		URL:    url,
		Headers: map[string]string{
			"Authorization": "Bearer " + c.token,
			"Content-Type":  "application/json",
		},
		Body:    payload,
		Timeout: timeout,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.Status < 200 || resp.Status >= 300 {
		apiErr := &APIError{StatusCode: resp.Status, URL: url, Body: string(resp.Body)}
		span.RecordError(apiErr)
		return nil, apiErr
	}

	return resp.Body, nil
}

// CreateUser provisions a party. Uses the long timeout: account creation
// allocates a wallet on the provider side.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (User, error) {
	data, err := c.request(ctx, "POST", "/users", req, c.longTimeout)
	if err != nil {
		return User{}, err
	}
	return decodeUser(data, "/users")
}

func (c *Client) GetUser(ctx context.Context, userID string) (User, error) {
	data, err := c.request(ctx, "GET", "/users/"+userID, nil, 0)
	if err != nil {
		return User{}, err
	}
	return decodeUser(data, "/users/{id}")
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	data, err := c.request(ctx, "GET", "/users", nil, 0)
	if err != nil {
		return nil, err
	}
	return decodeUserList(data, "/users")
}

func (c *Client) GetBalance(ctx context.Context, userID string) (Balance, error) {
	data, err := c.request(ctx, "GET", "/"+userID+"/balance", nil, 0)
	if err != nil {
		return Balance{}, err
	}
	return decodeBalance(data, "/{id}/balance")
}

func (c *Client) GetTransactions(ctx context.Context, userID string) ([]map[string]any, error) {
	data, err := c.request(ctx, "GET", "/"+userID+"/transactions", nil, 0)
	if err != nil {
		return nil, err
	}
	return decodeList(data, "transactions", "/{id}/transactions")
}

func (c *Client) CreateBankAccount(ctx context.Context, userID string, bank map[string]any) (map[string]any, error) {
	data, err := c.request(ctx, "POST", "/bank/"+userID, bank, 0)
	if err != nil {
		return nil, err
	}
	return decodeObject(data, "bankAccount", "/bank/{id}")
}

func (c *Client) GetBankAccount(ctx context.Context, userID string) (map[string]any, error) {
	data, err := c.request(ctx, "GET", "/bank/"+userID, nil, 0)
	if err != nil {
		return nil, err
	}
	return decodeObject(data, "bankAccount", "/bank/{id}")
}

// ActivatePay enables the pay capability for a provisioned party.
func (c *Client) ActivatePay(ctx context.Context, userID string) error {
	_, err := c.request(ctx, "POST", "/activate-pay/"+userID, nil, c.longTimeout)
	return err
}

// GetRecipient checks that a payment identifier is a reachable transfer
// target before a transfer is attempted against it.
func (c *Client) GetRecipient(ctx context.Context, paymentIdentifier string) (map[string]any, error) {
	data, err := c.request(ctx, "GET", "/recipient/"+paymentIdentifier, nil, 0)
	if err != nil {
		return nil, err
	}
	return decodeObject(data, "recipient", "/recipient/{paymentIdentifier}")
}

func (c *Client) Mint(ctx context.Context, req MintRequest) (map[string]any, error) {
	data, err := c.request(ctx, "POST", "/mint", req, 0)
	if err != nil {
		return nil, err
	}
	return decodeObject(data, "", "/mint")
}

// Transfer moves funds from a party to a payment identifier. The reference
// embeds the caller's idempotency key, which is what makes resubmission safe.
func (c *Client) Transfer(ctx context.Context, fromUserID, toPaymentIdentifier string, amount decimal.Decimal, reference string) (TransferResult, error) {
	body := map[string]any{
		"transactionAmount":    amount,
		"transactionRecipient": toPaymentIdentifier,
		"transactionNotes":     reference,
	}
	data, err := c.request(ctx, "POST", "/transfer/"+fromUserID, body, c.longTimeout)
	if err != nil {
		return TransferResult{}, err
	}

	raw, err := decodeObject(data, "", "/transfer/{fromUserId}")
	if err != nil {
		return TransferResult{}, err
	}
	msg, _ := raw["message"].(string)
	return TransferResult{Message: msg, Raw: raw}, nil
}
