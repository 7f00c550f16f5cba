package httpclient

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientBuilder(t *testing.T) {
	client, err := NewHTTPClientBuilder(zerolog.Nop()).
		WithTimeout(15 * time.Second).
		WithUserAgent("test-agent").
		WithFollowRedirects(false).
		WithMaxRedirects(5).
		WithRateLimit(3).
		WithRetry(DefaultRetryHandlerConfig(2)).
		Build()

	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, client.config.Timeout)
	assert.Equal(t, "test-agent", client.config.UserAgent)
	assert.False(t, client.config.FollowRedirects)
	assert.Equal(t, 5, client.config.MaxRedirects)
	assert.NotNil(t, client.rateLimiter)
	require.NotNil(t, client.retryHandler)
	assert.Equal(t, 2, client.retryHandler.maxRetries)
}

func TestHTTPClientBuilder_DefaultValues(t *testing.T) {
	client, err := NewHTTPClientBuilder(zerolog.Nop()).Build()
	require.NoError(t, err)

	defaults := DefaultHTTPClientConfig()

	assert.Equal(t, defaults.Timeout, client.config.Timeout)
	assert.Equal(t, defaults.UserAgent, client.config.UserAgent)
	assert.False(t, client.config.InsecureSkipVerify)
	assert.Nil(t, client.rateLimiter)
	assert.Nil(t, client.retryHandler)
}
