package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetryConfig(maxRetries int, codes ...int) RetryHandlerConfig {
	return RetryHandlerConfig{
		MaxRetries:       maxRetries,
		BaseDelay:        1 * time.Millisecond,
		MaxDelay:         10 * time.Millisecond,
		RetryStatusCodes: codes,
	}
}

func TestRetryHandler(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"channel":"C1"}`, string(body), "body must be resent on every attempt")
		if atomic.AddInt32(&requestCount, 1) <= 2 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).
		WithRetry(testRetryConfig(3, http.StatusTooManyRequests)).
		Build()
	require.NoError(t, err)

	resp, err := client.Do(&HTTPRequest{
		URL:    server.URL,
		Method: http.MethodPost,
		Body:   []byte(`{"channel":"C1"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requestCount))
}

func TestRetryHandler_MaxRetriesExceeded(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).
		WithRetry(testRetryConfig(2, http.StatusServiceUnavailable)).
		Build()
	require.NoError(t, err)

	resp, err := client.Do(&HTTPRequest{URL: server.URL, Method: http.MethodGet})
	require.Error(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requestCount)) // initial call + 2 retries
	var httpErr *common.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
}

func TestRetryHandler_NonRetryableStatus(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).
		WithRetry(testRetryConfig(3, http.StatusTooManyRequests)).
		Build()
	require.NoError(t, err)

	resp, err := client.Do(&HTTPRequest{URL: server.URL, Method: http.MethodGet})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
}

func TestRetryHandler_CalculateDelay(t *testing.T) {
	rh := NewRetryHandler(RetryHandlerConfig{
		MaxRetries: 5,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
	}, zerolog.Nop())

	assert.Equal(t, 100*time.Millisecond, rh.CalculateDelay(0))
	assert.Equal(t, 200*time.Millisecond, rh.CalculateDelay(1))
	assert.Equal(t, 400*time.Millisecond, rh.CalculateDelay(2))
	assert.Equal(t, time.Second, rh.CalculateDelay(6))
}

func TestRetryHandler_RetryAfterCapped(t *testing.T) {
	rh := NewRetryHandler(testRetryConfig(1, http.StatusTooManyRequests), zerolog.Nop())

	delay, ok := rh.retryAfter(&HTTPResponse{Headers: map[string]string{"Retry-After": "30"}})
	assert.True(t, ok)
	assert.Equal(t, 10*time.Millisecond, delay)

	_, ok = rh.retryAfter(&HTTPResponse{Headers: map[string]string{"Retry-After": "soon"}})
	assert.False(t, ok)
}

func TestRetryHandler_AtMostOnce(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		expectedCalls int32
	}{
		{name: "server error is not replayed", status: http.StatusBadGateway, expectedCalls: 1},
		{name: "rate limit is still retried", status: http.StatusTooManyRequests, expectedCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requestCount int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&requestCount, 1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client, err := NewHTTPClientBuilder(zerolog.Nop()).
				WithRetry(testRetryConfig(2, http.StatusTooManyRequests, http.StatusBadGateway)).
				Build()
			require.NoError(t, err)

			_, err = client.Do(&HTTPRequest{URL: server.URL, Method: http.MethodPost, AtMostOnce: true})
			require.Error(t, err)
			assert.Equal(t, tt.expectedCalls, atomic.LoadInt32(&requestCount))
		})
	}
}

func TestRetryHandler_AtMostOnceNetworkError(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).
		WithRetry(testRetryConfig(2)).
		Build()
	require.NoError(t, err)

	_, err = client.DoJSONAtMostOnce(context.Background(), http.MethodPost, server.URL, nil, map[string]string{"text": "hi"})
	var netErr *common.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))

	atomic.StoreInt32(&requestCount, 0)
	_, err = client.DoJSON(context.Background(), http.MethodPost, server.URL, nil, map[string]string{"text": "hi"})
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requestCount))
}
