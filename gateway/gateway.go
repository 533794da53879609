// Package gateway is the client for the campaign backend.
//
// Every call carries the bearer token from the token store and its own
// timeout. Failures are classified into Kind values; network, timeout, 5xx
// and 429 failures are retried with exponential backoff, the rest surface
// at once. While offline, calls fail fast unless the caller opted into the
// FIFO queue, which is drained by a single goroutine when SetOnline(true)
// is signalled. Some list endpoints are served from a TTL cache.
//
// A Gateway is built once and shared by reference.
package gateway

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
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxResponseBody caps how much of a response is read (10 MiB).
const maxResponseBody int64 = 10 << 20

// Tokens is the read side of the token store plus the clear performed on
// 401.
type Tokens interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// RetryPolicy is delay = min(Initial * Multiplier^attempt, Max), repeated
// at most MaxRetries times after the first attempt.
type RetryPolicy struct {
	MaxRetries int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultRetryPolicy is 3 retries after 1s, 2s and 4s, capped at 10s.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, Initial: time.Second, Max: 10 * time.Second, Multiplier: 2}

// Delay returns the wait before retry number attempt+1.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.Initial)
	for i := 0; i < attempt; i++ {
		d *= p.Multiplier
		if d >= float64(p.Max) {
			return p.Max
		}
	}
	if time.Duration(d) > p.Max {
		return p.Max
	}
	return time.Duration(d)
}

// Config configures a Gateway.
type Config struct {
	BaseURL    string
	Timeout    time.Duration // per attempt, default 30s
	Retry      RetryPolicy   // zero value means DefaultRetryPolicy
	HTTPClient *http.Client
	Tokens     Tokens
	// Limiter, when set, is waited on before every attempt.
	Limiter *rate.Limiter
	Logger  *slog.Logger

	// Sleep and Now are injectable for tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

func (c *Config) defaults() {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Retry == (RetryPolicy{}) {
		c.Retry = DefaultRetryPolicy
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Sleep == nil {
		c.Sleep = sleepCtx
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Gateway is the backend client.
type Gateway struct {
	cfg    Config
	logger *slog.Logger
	cache  *cache

	mu       sync.Mutex
	online   bool
	epoch    uint64 // bumped on every connectivity change
	queue    []*queuedCall
	draining bool

	baseCtx context.Context
	cancel  context.CancelFunc
}

// New returns a Gateway that starts online.
func New(cfg Config) *Gateway {
	cfg.defaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		cfg:     cfg,
		logger:  cfg.Logger,
		cache:   newCache(cfg.Now),
		online:  true,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Close stops a running queue drain. Queued calls are dropped.
func (g *Gateway) Close() {
	g.cancel()
}

type callOptions struct {
	retry bool
	queue bool
}

// CallOption tunes one Request.
type CallOption func(*callOptions)

// WithoutRetry makes the first failure final.
func WithoutRetry() CallOption { return func(o *callOptions) { o.retry = false } }

// WithQueue defers the call while offline instead of failing; Request then
// returns ErrQueued.
func WithQueue() CallOption { return func(o *callOptions) { o.queue = true } }

// Request sends body (JSON-encoded when non-nil) to endpoint and decodes a
// 2xx response into out when out is non-nil.
func (g *Gateway) Request(ctx context.Context, method, endpoint string, body, out any, opts ...CallOption) error {
	o := callOptions{retry: true}
	for _, opt := range opts {
		opt(&o)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("gateway: encode %s %s: %w", method, endpoint, err)
		}
	}

	if !g.Online() {
		if o.queue {
			g.enqueue(method, endpoint, payload)
			return ErrQueued
		}
		return &Error{Kind: KindOffline, Method: method, Endpoint: endpoint, Message: msgOffline}
	}

	err := g.send(ctx, method, endpoint, payload, out, o.retry)
	if err != nil && o.queue && !g.Online() && (IsKind(err, KindNetwork) || IsKind(err, KindTimeout)) {
		// Connectivity dropped during the call.
		g.enqueue(method, endpoint, payload)
		return ErrQueued
	}
	return err
}

func (g *Gateway) send(ctx context.Context, method, endpoint string, payload []byte, out any, retry bool) error {
	if !retry {
		return g.attempt(ctx, method, endpoint, payload, out)
	}

	p := g.cfg.Retry
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		err := g.attempt(ctx, method, endpoint, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err

		var ge *Error
		if !errors.As(err, &ge) || !ge.Kind.Retryable() {
			return err
		}
		if attempt < p.MaxRetries {
			wait := p.Delay(attempt)
			g.logger.WarnContext(ctx, "gateway: retrying call",
				"method", method, "endpoint", endpoint,
				"attempt", attempt+1, "max_retries", p.MaxRetries,
				"backoff_ms", wait.Milliseconds(), "kind", ge.Kind.String())
			if err := g.cfg.Sleep(ctx, wait); err != nil {
				return fmt.Errorf("gateway: %s %s: %w", method, endpoint, err)
			}
		}
	}
	return lastErr
}

func (g *Gateway) attempt(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	if g.cfg.Limiter != nil {
		if err := g.cfg.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("gateway: %s %s: rate limiter: %w", method, endpoint, err)
		}
	}

	actx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(actx, method, g.cfg.BaseURL+endpoint, rd)
	if err != nil {
		return fmt.Errorf("gateway: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.cfg.Tokens != nil {
		tok, err := g.cfg.Tokens.Token(ctx)
		if err != nil {
			g.logger.WarnContext(ctx, "gateway: token store read failed", "error", err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("gateway: %s %s: %w", method, endpoint, ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return &Error{Kind: KindTimeout, Method: method, Endpoint: endpoint, Message: msgTimeout, Err: err}
		}
		return &Error{Kind: KindNetwork, Method: method, Endpoint: endpoint, Message: msgNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		if errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return &Error{Kind: KindTimeout, Status: resp.StatusCode, Method: method, Endpoint: endpoint, Message: msgTimeout, Err: err}
		}
		return &Error{Kind: KindNetwork, Status: resp.StatusCode, Method: method, Endpoint: endpoint, Message: msgNetwork, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return g.classify(ctx, method, endpoint, resp, body)
	}

	if out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("gateway: decode %s %s: %w", method, endpoint, err)
		}
	}
	return nil
}

func (g *Gateway) classify(ctx context.Context, method, endpoint string, resp *http.Response, body []byte) error {
	e := &Error{Status: resp.StatusCode, Method: method, Endpoint: endpoint}
	switch s := resp.StatusCode; {
	case s == http.StatusUnauthorized:
		e.Kind, e.Message = KindUnauthorized, msgUnauthorized
		if g.cfg.Tokens != nil {
			if err := g.cfg.Tokens.Clear(ctx); err != nil {
				g.logger.ErrorContext(ctx, "gateway: clear token store", "error", err)
			}
		}
	case s == http.StatusForbidden:
		e.Kind, e.Message = KindForbidden, msgForbidden
	case s == http.StatusNotFound:
		e.Kind, e.Message = KindNotFound, msgNotFound
	case s == http.StatusUnprocessableEntity:
		e.Kind, e.Message = KindValidation, serverMessage(body, msgValidation)
	case s == http.StatusTooManyRequests:
		e.Kind, e.Message = KindRateLimited, msgRateLimited
	case s >= 500:
		e.Kind, e.Message = KindServer, msgServer
	default:
		e.Kind = KindRequest
		e.Message = serverMessage(body, "Request failed: "+http.StatusText(s))
	}
	return e
}

func serverMessage(body []byte, fallback string) string {
	var m struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &m) == nil && m.Message != "" {
		return m.Message
	}
	return fallback
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
