// Package httpx provides the resilient HTTP client shared by all outbound
// integrations. Transport errors, rate-limit responses and JSON decode
// failures are retried with a fixed short delay; by default the retry is
// unbounded, so a permanently broken upstream blocks the caller rather than
// surfacing an error.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultRetryDelay     = 100 * time.Millisecond
)

// RetryPolicy controls how request failures are retried. A zero MaxAttempts
// retries forever; tests inject a small bound instead.
type RetryPolicy struct {
	Delay       time.Duration
	MaxAttempts int
}

// DefaultRetryPolicy retries forever with the standard short delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Delay: defaultRetryDelay}
}

func (p RetryPolicy) exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

// Client wraps outbound JSON requests with retry and optional rate limiting.
type Client struct {
	name    string
	httpc   *http.Client
	retry   RetryPolicy
	limiter *rate.Limiter
	log     *logrus.Entry
}

// Option customizes a Client.
type Option func(*Client)

// WithRetryPolicy overrides the default unbounded retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithRateLimit throttles outbound requests to rps requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpc.Timeout = d }
}

// New creates a named client. The name tags every retry log line.
func New(name string, log *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		name:  name,
		httpc: &http.Client{Timeout: defaultRequestTimeout},
		retry: DefaultRetryPolicy(),
		log:   log.WithField("component", "http_client").WithField("client", name),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON issues a GET with optional query parameters and decodes the JSON
// response into out, retrying per the client's policy.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	target := rawURL
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		target = rawURL + sep + params.Encode()
	}

	return c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	}, out)
}

// PostJSON issues a POST with a JSON body and the given headers and decodes
// the JSON response into out, retrying per the client's policy.
func (c *Client) PostJSON(ctx context.Context, rawURL string, headers http.Header, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, vs := range headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		return req, nil
	}, out)
}

func (c *Client) do(ctx context.Context, build func() (*http.Request, error), out any) error {
	attempt := 0
	for {
		err := c.once(ctx, build, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempt++
		c.log.WithError(err).WithField("attempt", attempt).Warn("request failed, retrying")
		if c.retry.exhausted(attempt) {
			return fmt.Errorf("request failed after %d attempts: %w", attempt, err)
		}

		select {
		case <-time.After(c.retry.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) once(ctx context.Context, build func() (*http.Request, error), out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := build()
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || strings.Contains(string(body), "Too Many Requests") {
		return fmt.Errorf("rate limited by upstream")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if len(body) == 0 {
		return fmt.Errorf("empty response body")
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
