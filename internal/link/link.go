// Package link checks that the network path to the collector is up before the
// agent starts sampling.
package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"
)

// ErrConnectivity means the link did not come up within the startup timeout.
var ErrConnectivity = errors.New("link not connected")

// Checker reports whether the link is currently usable.
type Checker interface {
	Check(ctx context.Context) error
}

type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// TCPChecker treats the link as connected when a TCP connection to Addr succeeds.
type TCPChecker struct {
	Addr   string
	Dialer net.Dialer
}

// NewTCPChecker derives the collector address from its URL.
func NewTCPChecker(serverURL string) (*TCPChecker, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("server url %q has no host", serverURL)
	}

	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		default:
			port = "80"
		}
	}
	return &TCPChecker{Addr: net.JoinHostPort(u.Hostname(), port)}, nil
}

func (c *TCPChecker) Check(ctx context.Context) error {
	conn, err := c.Dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// WaitConnected polls c every interval until it succeeds or timeout elapses. It
// returns an error wrapping ErrConnectivity and the last check error on timeout,
// and ctx.Err() when ctx ends first.
func WaitConnected(ctx context.Context, c Checker, timeout, interval time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for attempt := 1; ; attempt++ {
		checkCtx, checkCancel := context.WithTimeout(waitCtx, interval)
		lastErr = c.Check(checkCtx)
		checkCancel()
		if lastErr == nil {
			logger.Info("link connected", "attempt", attempt)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Debug("link not ready", "attempt", attempt, "error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-waitCtx.Done():
			// waitCtx also ends when ctx does; shutdown is not a connectivity fault.
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("%w after %s: %w", ErrConnectivity, timeout, lastErr)
		case <-ticker.C:
		}
	}
}
