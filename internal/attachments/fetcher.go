package attachments

import (
	"context"
	"time"

	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/aleister1102/piiwatch/internal/httpclient"
	"github.com/rs/zerolog"
)

// Fetcher downloads attachment bytes and reports the served content type
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, url string) ([]byte, string, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	return f(ctx, url)
}

// HTTPFetcher downloads unauthenticated URLs, such as pre-signed record file links
type HTTPFetcher struct {
	client *httpclient.HTTPClient
	logger zerolog.Logger
}

// NewHTTPFetcher creates a fetcher that rejects bodies larger than maxBytes
func NewHTTPFetcher(timeout time.Duration, maxBytes int, logger zerolog.Logger) (*HTTPFetcher, error) {
	logger = logger.With().Str("component", "AttachmentFetcher").Logger()
	client, err := httpclient.NewHTTPClientBuilder(logger).
		WithTimeout(timeout).
		WithMaxContentSize(maxBytes).
		WithHeader("Accept", "*/*").
		WithRetry(httpclient.DefaultRetryHandlerConfig(1)).
		Build()
	if err != nil {
		return nil, common.WrapError(err, "failed to build attachment HTTP client")
	}
	return &HTTPFetcher{client: client, logger: logger}, nil
}

// Fetch downloads url
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := f.client.Download(ctx, url, nil)
	if err != nil {
		f.logger.Debug().Err(err).Str("url", url).Msg("Attachment download failed")
		return nil, "", common.WrapError(err, "attachment download")
	}
	return resp.Body, resp.Headers["Content-Type"], nil
}
