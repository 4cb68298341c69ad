package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func boundedRetry() Option {
	return WithRetryPolicy(RetryPolicy{Delay: time.Millisecond, MaxAttempts: 3})
}

func TestGetJSONDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bar", r.URL.Query().Get("foo"))
		_, _ = w.Write([]byte(`{"value": 42}`))
	}))
	defer srv.Close()

	c := New("test", testLogger(), boundedRetry())

	var out struct {
		Value int `json:"value"`
	}
	err := c.GetJSON(context.Background(), srv.URL, url.Values{"foo": {"bar"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Value)
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := New("test", testLogger(), boundedRetry())

	var out struct {
		OK bool `json:"ok"`
	}
	err := c.GetJSON(context.Background(), srv.URL, nil, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetJSONGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New("test", testLogger(), boundedRetry())

	err := c.GetJSON(context.Background(), srv.URL, nil, &struct{}{})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetJSONRetriesRateLimitBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// some upstreams answer 200 with a throttle message
			_, _ = w.Write([]byte(`Too Many Requests`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New("test", testLogger(), boundedRetry())

	err := c.GetJSON(context.Background(), srv.URL, nil, &struct{}{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPostJSONSendsBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "abc", body["address"])

		_, _ = w.Write([]byte(`{"done": true}`))
	}))
	defer srv.Close()

	c := New("test", testLogger(), boundedRetry())

	var out struct {
		Done bool `json:"done"`
	}
	headers := http.Header{"X-API-Key": {"secret"}}
	err := c.PostJSON(context.Background(), srv.URL, headers, map[string]string{"address": "abc"}, &out)
	require.NoError(t, err)
	assert.True(t, out.Done)
}

func TestGetJSONStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New("test", testLogger(), WithRetryPolicy(RetryPolicy{Delay: 10 * time.Millisecond}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.GetJSON(ctx, srv.URL, nil, &struct{}{})
	require.Error(t, err)
}
