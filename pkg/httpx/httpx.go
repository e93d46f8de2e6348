package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrEmptyURL   = errors.New("httpx: empty URL")
	ErrInvalidURL = errors.New("httpx: invalid URL")
	ErrMaxRetries = errors.New("httpx: max retries reached")
)

// Config controls the client. Retries are off by default: callers that need
// retry semantics opt in, because blind retries break idempotency contracts
// upstream of here.
type Config struct {
	Timeout        time.Duration
	MaxRetries     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	BaseHeaders    map[string]string
	RetryStatus    []int
	RetryOn        func(status int, err error) bool
}

type Request struct {
	Method  string
	URL     string
	Params  map[string]string
	Headers map[string]string
	Body    []byte
	// Timeout overrides the client timeout for this call when positive.
	Timeout time.Duration
}

type Response struct {
	Status  int
	Body    []byte
	Headers http.Header
	URL     string
}

type Client interface {
	Do(ctx context.Context, req Request) (Response, error)
}

type realClient struct {
	http *http.Client
	cfg  Config
}

func New(cfg Config) Client {
	normalizeConfig(&cfg)

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &realClient{
		http: &http.Client{Transport: tr},
		cfg:  cfg,
	}
}

func NewWithHTTP(hc *http.Client, cfg Config) Client {
	normalizeConfig(&cfg)
	if hc == nil {
		return New(cfg)
	}
	return &realClient{http: hc, cfg: cfg}
}

func (c *realClient) Do(ctx context.Context, r Request) (Response, error) {
	if r.URL == "" {
		return Response{}, ErrEmptyURL
	}
	if r.Method == "" {
		r.Method = http.MethodGet
	}

	u, err := buildURL(r.URL, r.Params)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	timeout := c.cfg.Timeout
	if r.Timeout > 0 {
		timeout = r.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		var body io.Reader
		if len(r.Body) > 0 {
			body = bytes.NewReader(r.Body)
		}

		req, err := http.NewRequestWithContext(ctx, r.Method, u, body)
		if err != nil {
			return Response{}, fmt.Errorf("httpx: build request: %w", err)
		}
		c.setRequestHeaders(req, r.Headers)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return Response{}, ctx.Err()
			}
			if c.shouldRetry(0, err) && attempt < c.cfg.MaxRetries {
				c.sleepBackoff(attempt)
				lastErr = err
				continue
			}
			return Response{}, fmt.Errorf("httpx: request failed: %w", err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		res := Response{
			Status:  resp.StatusCode,
			Body:    respBody,
			Headers: resp.Header.Clone(),
			URL:     u,
		}

		if readErr != nil {
			if c.shouldRetry(resp.StatusCode, readErr) && attempt < c.cfg.MaxRetries {
				c.sleepBackoff(attempt)
				lastErr = readErr
				continue
			}
			return res, fmt.Errorf("httpx: read body: %w", readErr)
		}

		if c.shouldRetry(resp.StatusCode, nil) && attempt < c.cfg.MaxRetries {
			lastErr = fmt.Errorf("httpx: retryable status %d", resp.StatusCode)
			c.sleepBackoff(attempt)
			continue
		}

		return res, nil
	}

	return Response{}, fmt.Errorf("%w: %v", ErrMaxRetries, lastErr)
}

func (c *realClient) setRequestHeaders(req *http.Request, customHeaders map[string]string) {
	for k, v := range c.cfg.BaseHeaders {
		req.Header.Set(k, v)
	}

	if _, ok := headerLookup(customHeaders, "Accept"); !ok {
		req.Header.Set("Accept", "application/json")
	}
	if req.Body != nil {
		if _, ok := headerLookup(customHeaders, "Content-Type"); !ok {
			req.Header.Set("Content-Type", "application/json")
		}
	}

	for k, v := range customHeaders {
		req.Header.Set(k, v)
	}
}

func (c *realClient) shouldRetry(status int, err error) bool {
	if c.cfg.MaxRetries <= 0 {
		return false
	}
	if c.cfg.RetryOn != nil {
		return c.cfg.RetryOn(status, err)
	}
	if err != nil {
		return true
	}
	for _, s := range c.cfg.RetryStatus {
		if status == s {
			return true
		}
	}
	return false
}

func (c *realClient) sleepBackoff(attempt int) {
	backoff := float64(c.cfg.BackoffInitial) * math.Pow(2, float64(attempt))
	backoff += float64(time.Duration(rand.Intn(250)) * time.Millisecond)
	delay := time.Duration(backoff)
	if delay > c.cfg.BackoffMax {
		delay = c.cfg.BackoffMax
	}
	time.Sleep(delay)
}

func normalizeConfig(cfg *Config) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 30 * time.Second
	}
	if len(cfg.RetryStatus) == 0 && cfg.RetryOn == nil {
		cfg.RetryStatus = []int{http.StatusTooManyRequests}
		for code := 500; code <= 599; code++ {
			cfg.RetryStatus = append(cfg.RetryStatus, code)
		}
	}
}

func buildURL(raw string, params map[string]string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("missing scheme or host in %q", raw)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func headerLookup(headers map[string]string, key string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}
