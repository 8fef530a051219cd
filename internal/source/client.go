package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Common errors.
var (
	ErrNotFound     = errors.New("source: document not found")
	ErrForbidden    = errors.New("source: access forbidden")
	ErrUnauthorized = errors.New("source: unauthorized")
	ErrServerError  = errors.New("source: server error")
)

// Options configures the source client.
type Options struct {
	// ConnectTimeout bounds connection establishment.
	// Default: 10s
	ConnectTimeout time.Duration

	// ReadTimeout bounds the whole request, connect included.
	// Default: 60s
	ReadTimeout time.Duration

	// RetryAttempts is the maximum number of retry attempts.
	// Default: 3
	RetryAttempts int

	// RetryBackoff is the initial backoff duration.
	// Default: 500ms
	RetryBackoff time.Duration

	// RetryMaxBackoff is the maximum backoff duration.
	// Default: 10s
	RetryMaxBackoff time.Duration
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout:  10 * time.Second,
		ReadTimeout:     60 * time.Second,
		RetryAttempts:   3,
		RetryBackoff:    500 * time.Millisecond,
		RetryMaxBackoff: 10 * time.Second,
	}
}

// FileInfo contains metadata about a remote document.
type FileInfo struct {
	Size        int64
	ContentType string
}

// Client downloads documents over HTTP with bounded internal retries.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new source client with the given options.
func NewClient(opts Options) *Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	if opts.RetryMaxBackoff <= 0 {
		opts.RetryMaxBackoff = 10 * time.Second
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: opts.ConnectTimeout,
		}).DialContext,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.ReadTimeout,
		},
		opts: opts,
	}
}

// Head fetches metadata about a remote document.
func (c *Client) Head(ctx context.Context, url string) (*FileInfo, error) {
	var lastErr error

	for attempt := 0; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("%w: %d %s", ErrServerError, resp.StatusCode, resp.Status)
			continue
		}
		if err := checkStatusCode(resp.StatusCode); err != nil {
			return nil, err
		}

		return &FileInfo{
			Size:        resp.ContentLength,
			ContentType: resp.Header.Get("Content-Type"),
		}, nil
	}

	return nil, fmt.Errorf("head request failed after %d attempts: %w", c.opts.RetryAttempts+1, lastErr)
}

// Download fetches url into destPath and returns the number of bytes
// written. The body streams to a temp file next to destPath which is
// renamed into place, so destPath never holds a partial document.
func (c *Client) Download(ctx context.Context, url, destPath string) (int64, error) {
	var lastErr error

	for attempt := 0; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return 0, err
			}
		}

		n, err := c.fetch(ctx, url, destPath)
		if err == nil {
			return n, nil
		}
		if ctx.Err() != nil {
			return 0, err
		}
		if !retryable(err) {
			return 0, err
		}
		lastErr = err
	}

	return 0, fmt.Errorf("download failed after %d attempts: %w", c.opts.RetryAttempts+1, lastErr)
}

// fetch performs a single download attempt.
func (c *Client) fetch(ctx context.Context, url, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return 0, fmt.Errorf("%w: %d %s", ErrServerError, resp.StatusCode, resp.Status)
	}
	if err := checkStatusCode(resp.StatusCode); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".download-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return 0, fmt.Errorf("finalize download: %w", err)
	}
	return n, nil
}

// retryable reports whether err is worth another attempt: timeouts,
// transport errors, and server errors. Everything decided by a status code
// other than 5xx fails immediately. Caller cancellation is the retry loop's
// concern: a client-level timeout also reports context.DeadlineExceeded
// through its *url.Error, and that one must stay retryable.
func retryable(err error) bool {
	if errors.Is(err, ErrServerError) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// backoff waits for an exponentially increasing duration with jitter.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	backoff := c.opts.RetryBackoff * time.Duration(1<<uint(attempt-1))
	if backoff > c.opts.RetryMaxBackoff {
		backoff = c.opts.RetryMaxBackoff
	}

	// Add jitter: 0.5 to 1.5 of backoff
	jitter := time.Duration(float64(backoff) * (0.5 + rand.Float64()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(jitter):
		return nil
	}
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}
