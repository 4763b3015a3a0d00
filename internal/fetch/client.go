package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Options parameterise the resilient HTTP client.
type Options struct {
	UserAgent string
	// BackoffStep is multiplied by the retry index for the linear backoff
	// delay. Defaults to 800ms.
	BackoffStep time.Duration
}

// Client performs GET requests with timeout, bounded retries, and linear
// backoff. Upstream blocks scrapers aggressively, so every request carries
// a browser-like header set.
type Client struct {
	opts   Options
	logger zerolog.Logger
	http   *http.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

// New constructs a Client.
func New(opts Options, logger zerolog.Logger) *Client {
	if opts.BackoffStep <= 0 {
		opts.BackoffStep = 800 * time.Millisecond
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Client{
		opts:   opts,
		logger: logger.With().Str("component", "fetch").Logger(),
		http:   &http.Client{},
		sleep:  sleepCtx,
	}
}

// Get fetches url, retrying up to maxRetries attempts. Attempt n (n >= 2)
// is preceded by a backoff of BackoffStep * (n-1). Any transport error or
// non-2xx status counts as a failed attempt; after the last attempt the
// final error is returned as-is. A successful call always returns the
// complete body.
func (c *Client) Get(ctx context.Context, url string, timeout time.Duration, maxRetries int) ([]byte, error) {
	if timeout <= 0 {
		return nil, errors.New("fetch: timeout must be positive")
	}
	if maxRetries < 1 {
		return nil, errors.New("fetch: maxRetries must be at least 1")
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			delay := c.opts.BackoffStep * time.Duration(attempt-1)
			c.logger.Debug().Str("url", url).Int("attempt", attempt).Dur("backoff", delay).Msg("retrying after backoff")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		body, err := c.attempt(ctx, url, timeout)
		if err == nil {
			return body, nil
		}
		lastErr = err
		c.logger.Warn().Err(err).Str("url", url).Int("attempt", attempt).Msg("fetch attempt failed")
	}

	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Connection", "close")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(url, resp.StatusCode, body)
	}

	return body, nil
}

func statusError(url string, status int, body []byte) error {
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > 120 {
		snippet = snippet[:120]
	}
	if snippet != "" {
		return fmt.Errorf("GET %s: unexpected status %d: %s", url, status, snippet)
	}
	return fmt.Errorf("GET %s: unexpected status %d", url, status)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
