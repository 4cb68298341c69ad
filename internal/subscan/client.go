// Package subscan is the client for the Subscan block-explorer API. Every
// call goes through the scan envelope: a non-zero envelope code means the
// request was rejected (usually key throttling) and is resubmitted with a
// fresh API key after a short pause.
package subscan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/azero-feed/internal/httpx"
	"github.com/azero-feed/internal/keypool"
	"github.com/azero-feed/internal/logging"
	"github.com/azero-feed/internal/types"
)

const defaultResubmitDelay = time.Second

// Client issues authenticated scan requests against one network.
type Client struct {
	http    *httpx.Client
	keys    *keypool.Pool
	baseURL string
	retry   httpx.RetryPolicy
	log     *logrus.Entry
}

// Option customizes a Client.
type Option func(*Client)

// WithScanRetryPolicy bounds the envelope-level resubmit loop. The default
// resubmits forever with a one second pause.
func WithScanRetryPolicy(p httpx.RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithBaseURL overrides the network-derived API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *httpx.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the given network using keys from the pool.
func New(network types.Network, keys *keypool.Pool, log *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		http:    httpx.New("subscan", log),
		keys:    keys,
		baseURL: fmt.Sprintf("https://%s.api.subscan.io", network),
		retry:   httpx.RetryPolicy{Delay: defaultResubmitDelay},
		log:     logging.Component(log, "subscan_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type scanEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// postScan submits payload to a scan endpoint and decodes the envelope data
// into out. A rejected envelope is logged and resubmitted per the retry
// policy; each resubmission draws a fresh API key.
func (c *Client) postScan(ctx context.Context, path string, payload any, out any) error {
	attempt := 0
	for {
		headers := http.Header{"X-API-Key": {c.keys.Next()}}

		var envelope scanEnvelope
		if err := c.http.PostJSON(ctx, c.baseURL+path, headers, payload, &envelope); err != nil {
			return err
		}

		if envelope.Code != 0 {
			attempt++
			c.log.WithFields(logrus.Fields{
				"path":    path,
				"code":    envelope.Code,
				"message": envelope.Message,
				"attempt": attempt,
			}).Error("scan request rejected, resubmitting")
			if c.retry.MaxAttempts > 0 && attempt >= c.retry.MaxAttempts {
				return fmt.Errorf("scan request rejected after %d attempts: [%d] %s", attempt, envelope.Code, envelope.Message)
			}
			select {
			case <-time.After(c.retry.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		if out == nil || len(envelope.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decoding scan data: %w", err)
		}
		return nil
	}
}
