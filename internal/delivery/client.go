package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// Config bounds one Send call.
type Config struct {
	// Timeout applies to each attempt separately.
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase float64
	// BackoffUnit is the delay after the first failed attempt; attempt n waits
	// BackoffUnit * BackoffBase^(n-1).
	BackoffUnit time.Duration
	// MaxBackoff caps a single wait; zero leaves only the time.Duration range.
	MaxBackoff time.Duration
}

func (c Config) validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be >= 1, got %d", c.MaxRetries)
	}
	if !(c.BackoffBase > 1) || math.IsInf(c.BackoffBase, 0) {
		return fmt.Errorf("backoff base must be > 1, got %v", c.BackoffBase)
	}
	if c.BackoffUnit <= 0 {
		return fmt.Errorf("backoff unit must be positive, got %v", c.BackoffUnit)
	}
	if c.MaxBackoff < 0 {
		return fmt.Errorf("max backoff must not be negative, got %v", c.MaxBackoff)
	}
	return nil
}

// Sleeper waits for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

type Option func(*Client)

// WithSleeper replaces the wait between attempts.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client delivers payloads with bounded retries. It keeps no state between Send
// calls and must not be used for concurrent sends.
type Client struct {
	cfg       Config
	transport Transport
	sleep     Sleeper
	logger    *slog.Logger
}

func NewClient(cfg Config, transport Transport, opts ...Option) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	c := &Client{
		cfg:       cfg,
		transport: transport,
		sleep:     sleepContext,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	return c, nil
}

// Receipt describes a successful delivery.
type Receipt struct {
	Status   int
	Body     []byte
	Attempts int
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetryable
	outcomeTerminal
)

type attemptResult struct {
	outcome outcome
	resp    Response
	err     error
}

// Send posts payload to url until it is accepted, a terminal fault occurs, or
// MaxRetries attempts have failed. Failures are returned as *Error.
func (c *Client) Send(ctx context.Context, url string, header http.Header, payload []byte) (Receipt, error) {
	for n := 1; ; n++ {
		res := c.attempt(ctx, url, header, payload)

		switch res.outcome {
		case outcomeSuccess:
			if n > 1 {
				c.logger.Info("delivery succeeded after retry", "attempt", n, "status", res.resp.Status)
			}
			return Receipt{Status: res.resp.Status, Body: res.resp.Body, Attempts: n}, nil
		case outcomeTerminal:
			return Receipt{}, &Error{Attempts: n, Status: res.resp.Status, Err: res.err}
		}

		if n >= c.cfg.MaxRetries {
			return Receipt{}, &Error{Attempts: n, Status: res.resp.Status, Err: res.err}
		}

		delay := c.Backoff(n)
		c.logger.Warn("delivery attempt failed, retrying",
			"attempt", n,
			"max_retries", c.cfg.MaxRetries,
			"wait", delay,
			"error", res.err,
		)
		if err := c.sleep(ctx, delay); err != nil {
			return Receipt{}, &Error{Attempts: n, Status: res.resp.Status, Err: errors.Join(res.err, err)}
		}
	}
}

// Backoff returns the wait after failed attempt n (1-based), clamped to
// MaxBackoff and to the largest time.Duration.
func (c *Client) Backoff(n int) time.Duration {
	limit := time.Duration(math.MaxInt64)
	if c.cfg.MaxBackoff > 0 {
		limit = c.cfg.MaxBackoff
	}
	d := math.Pow(c.cfg.BackoffBase, float64(n-1)) * float64(c.cfg.BackoffUnit)
	// float64(limit) may round up past MaxInt64, so compare before converting.
	if !(d < float64(limit)) {
		return limit
	}
	return time.Duration(d)
}

func (c *Client) attempt(ctx context.Context, url string, header http.Header, payload []byte) attemptResult {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.transport.Post(attemptCtx, url, header, payload)
	if err != nil {
		return attemptResult{outcome: outcomeRetryable, err: fmt.Errorf("%w: %w", ErrTransport, err)}
	}

	switch Classify(resp.Status) {
	case ClassSuccess:
		return attemptResult{outcome: outcomeSuccess, resp: resp}
	case ClassClientFault:
		return attemptResult{
			outcome: outcomeTerminal,
			resp:    resp,
			err:     fmt.Errorf("%w: status %d (%s)", ErrClientStatus, resp.Status, StatusText(resp.Status)),
		}
	case ClassServerFault:
		return attemptResult{
			outcome: outcomeRetryable,
			resp:    resp,
			err:     fmt.Errorf("%w: status %d (%s)", ErrServerStatus, resp.Status, StatusText(resp.Status)),
		}
	default:
		return attemptResult{
			outcome: outcomeRetryable,
			resp:    resp,
			err:     fmt.Errorf("%w: status %d", ErrUnknownStatus, resp.Status),
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
