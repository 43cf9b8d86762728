// Package httpx provides the outbound HTTP client shared by the source connectors.
package httpx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const maxBackoff = 30 * time.Second

// Options configures NewClient.
type Options struct {
	// Timeout bounds each attempt, body read included.
	Timeout     time.Duration
	UserAgent   string
	Retries     int
	BackoffBase time.Duration
}

// NewClient builds an http.Client whose transport retries transient failures.
func NewClient(opts Options, logger *slog.Logger) *http.Client {
	return &http.Client{Transport: NewRetryTransport(http.DefaultTransport, opts, logger)}
}

// RetryTransport retries idempotent requests on transient statuses and network errors.
type RetryTransport struct {
	next      http.RoundTripper
	timeout   time.Duration
	userAgent string
	retries   int
	base      time.Duration
	logger    *slog.Logger
}

var _ http.RoundTripper = (*RetryTransport)(nil)

// NewRetryTransport wraps next; a nil next uses http.DefaultTransport.
func NewRetryTransport(next http.RoundTripper, opts Options, logger *slog.Logger) *RetryTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	base := opts.BackoffBase
	if base <= 0 {
		base = time.Second
	}
	return &RetryTransport{
		next:      next,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		retries:   opts.Retries,
		base:      base,
		logger:    logger,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	req = req.Clone(ctx)
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	retries := t.retries
	if !idempotent(req.Method) {
		retries = 0
	}

	bo := &backoff.ExponentialBackOff{
		InitialInterval:     t.base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxBackoff,
	}
	bo.Reset()

	for attempt := 0; ; attempt++ {
		if attempt > 0 && req.Body != nil && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req.Body = body
		}

		resp, err := t.attempt(req)
		if attempt >= retries || !retryable(ctx, resp, err) {
			return resp, err
		}

		wait := bo.NextBackOff()
		attrs := []any{"method", req.Method, "url", req.URL.String(), "attempt", attempt + 1, "wait", wait}
		if err != nil {
			attrs = append(attrs, "error", err)
		} else {
			attrs = append(attrs, "status", resp.StatusCode)
			drain(resp)
		}
		t.logger.Debug("retrying request", attrs...)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (t *RetryTransport) attempt(req *http.Request) (*http.Response, error) {
	if t.timeout <= 0 {
		return t.next.RoundTrip(req)
	}
	ctx, cancel := context.WithTimeout(req.Context(), t.timeout)
	resp, err := t.next.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, "":
		return true
	default:
		return false
	}
}

func retryable(ctx context.Context, resp *http.Response, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}
