// Package feed renders persisted whale activity into channel messages and
// posts them to Telegram, suppressing anything already posted.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/azero-feed/internal/httpx"
	"github.com/azero-feed/internal/logging"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// TelegramPoster delivers messages to one channel through the Bot API. A
// delivery rejected by the API (throttling, mostly) is logged and retried
// after a pause.
type TelegramPoster struct {
	http      *httpx.Client
	baseURL   string
	botToken  string
	channelID string
	retry     httpx.RetryPolicy
	log       *logrus.Entry
}

// PosterOption customizes a TelegramPoster.
type PosterOption func(*TelegramPoster)

// WithPosterRetryPolicy bounds the delivery retry loop.
func WithPosterRetryPolicy(p httpx.RetryPolicy) PosterOption {
	return func(t *TelegramPoster) { t.retry = p }
}

// WithPosterBaseURL overrides the Bot API base URL.
func WithPosterBaseURL(u string) PosterOption {
	return func(t *TelegramPoster) { t.baseURL = u }
}

// NewTelegramPoster creates a poster for the channel.
func NewTelegramPoster(botToken, channelID string, log *logrus.Logger, opts ...PosterOption) *TelegramPoster {
	t := &TelegramPoster{
		http:      httpx.New("telegram", log),
		baseURL:   defaultTelegramBaseURL,
		botToken:  botToken,
		channelID: channelID,
		retry:     httpx.RetryPolicy{Delay: time.Second},
		log:       logging.Component(log, "telegram_poster"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Post delivers one markdown message to the channel.
func (t *TelegramPoster) Post(ctx context.Context, message string) error {
	params := url.Values{
		"chat_id":                  {t.channelID},
		"text":                     {message},
		"parse_mode":               {"markdown"},
		"disable_web_page_preview": {"true"},
	}
	target := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	attempt := 0
	for {
		var resp sendMessageResponse
		if err := t.http.GetJSON(ctx, target, params, &resp); err != nil {
			return err
		}
		if resp.OK {
			return nil
		}

		attempt++
		t.log.WithFields(logrus.Fields{
			"code":        resp.ErrorCode,
			"description": resp.Description,
			"attempt":     attempt,
		}).Error("message delivery rejected, retrying")
		if t.retry.MaxAttempts > 0 && attempt >= t.retry.MaxAttempts {
			return fmt.Errorf("message rejected after %d attempts: [%d] %s", attempt, resp.ErrorCode, resp.Description)
		}

		select {
		case <-time.After(t.retry.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
