package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

// maxErrorBodyLen caps how much of an error response is kept in HTTPError messages
const maxErrorBodyLen = 1024

// HTTPClient wraps net/http.Client with retries, pacing and bounded body reads
type HTTPClient struct {
	client       *http.Client
	config       HTTPClientConfig
	logger       zerolog.Logger
	retryHandler *RetryHandler
	rateLimiter  *RateLimiter
	bufferPool   sync.Pool
}

// NewHTTPClient creates a new HTTP client with the given configuration using net/http
func NewHTTPClient(config HTTPClientConfig, logger zerolog.Logger) (*HTTPClient, error) {
	transport := &http.Transport{
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		MaxConnsPerHost:       config.MaxConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ExpectContinueTimeout: config.ExpectContinueTimeout,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.InsecureSkipVerify,
		},
	}

	if config.EnableHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			logger.Warn().Err(err).Msg("Failed to configure HTTP/2, falling back to HTTP/1.1")
		} else {
			logger.Debug().Msg("HTTP/2 support enabled")
		}
	}

	if config.Proxy != "" {
		proxyURL, err := url.Parse(config.Proxy)
		if err != nil {
			return nil, common.WrapError(err, "failed to parse proxy URL")
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		logger.Info().Str("proxy", config.Proxy).Msg("HTTP client configured with proxy")
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}

	if !config.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else if config.MaxRedirects > 0 {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= config.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", config.MaxRedirects)
			}
			return nil
		}
	}

	var limiter *RateLimiter
	if config.RequestsPerSecond > 0 {
		limiter = NewRateLimiter(config.RequestsPerSecond, 0, logger)
	}

	logger.Debug().
		Dur("timeout", config.Timeout).
		Bool("follow_redirects", config.FollowRedirects).
		Bool("http2_enabled", config.EnableHTTP2).
		Int("requests_per_second", config.RequestsPerSecond).
		Msg("HTTP client created")

	return &HTTPClient{
		client:      client,
		config:      config,
		logger:      logger,
		rateLimiter: limiter,
		bufferPool: sync.Pool{
			New: func() any {
				b := make([]byte, 32*1024)
				return &b
			},
		},
	}, nil
}

// Do performs an HTTP request, with retries if a retry handler is configured.
func (c *HTTPClient) Do(req *HTTPRequest) (*HTTPResponse, error) {
	if c.retryHandler != nil {
		ctx := req.Context
		if ctx == nil {
			ctx = context.Background()
		}
		return c.retryHandler.DoWithRetry(ctx, c.do, req)
	}
	return c.do(req)
}

func (c *HTTPClient) do(req *HTTPRequest) (*HTTPResponse, error) {
	ctx := req.Context
	if ctx == nil {
		ctx = context.Background()
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, common.WrapError(err, "rate limiter")
		}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, common.WrapError(err, "failed to create HTTP request")
	}

	for key, value := range c.config.CustomHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "*/*")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, common.NewNetworkError(req.URL, "HTTP request failed", err)
	}
	defer resp.Body.Close()

	bufPtr := c.bufferPool.Get().(*[]byte)
	defer c.bufferPool.Put(bufPtr)
	buf := bytes.NewBuffer((*bufPtr)[:0])

	var reader io.Reader = resp.Body
	if c.config.MaxContentSize > 0 {
		reader = io.LimitReader(resp.Body, int64(c.config.MaxContentSize)+1)
	}
	if _, err := io.Copy(buf, reader); err != nil {
		return nil, common.NewNetworkError(req.URL, "failed to read response body", err)
	}

	bodyBytes := make([]byte, buf.Len())
	copy(bodyBytes, buf.Bytes())

	httpResp := &HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    make(map[string]string, len(resp.Header)),
		Body:       bodyBytes,
	}
	if c.config.MaxContentSize > 0 && len(bodyBytes) > c.config.MaxContentSize {
		httpResp.Body = bodyBytes[:c.config.MaxContentSize]
		httpResp.Truncated = true
	}

	for key, values := range resp.Header {
		if len(values) > 0 {
			httpResp.Headers[key] = values[0]
		}
	}

	return httpResp, nil
}

// DoJSON sends payload (if any) as a JSON body and requires a 2xx answer.
// Non-2xx responses come back as *common.HTTPError alongside the response.
func (c *HTTPClient) DoJSON(ctx context.Context, method, rawURL string, headers map[string]string, payload any) (*HTTPResponse, error) {
	req, err := newJSONRequest(ctx, method, rawURL, headers, payload)
	if err != nil {
		return nil, err
	}
	return c.doJSON(req)
}

// DoJSONAtMostOnce is DoJSON for calls with side effects that must not happen twice,
// such as posting a message. Only rate-limited attempts are retried.
func (c *HTTPClient) DoJSONAtMostOnce(ctx context.Context, method, rawURL string, headers map[string]string, payload any) (*HTTPResponse, error) {
	req, err := newJSONRequest(ctx, method, rawURL, headers, payload)
	if err != nil {
		return nil, err
	}
	req.AtMostOnce = true
	return c.doJSON(req)
}

func newJSONRequest(ctx context.Context, method, rawURL string, headers map[string]string, payload any) (*HTTPRequest, error) {
	req := &HTTPRequest{
		URL:     rawURL,
		Method:  method,
		Headers: make(map[string]string, len(headers)+1),
		Context: ctx,
	}
	for k, v := range headers {
		req.Headers[k] = v
	}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, common.WrapError(err, "failed to encode request body")
		}
		req.Body = body
		req.Headers["Content-Type"] = "application/json; charset=utf-8"
	}
	return req, nil
}

func (c *HTTPClient) doJSON(req *HTTPRequest) (*HTTPResponse, error) {
	resp, err := c.Do(req)
	if err != nil {
		return resp, err
	}
	if !resp.IsSuccess() {
		return resp, NewStatusError(resp, req.URL)
	}
	return resp, nil
}

// Download fetches a binary resource and requires a 2xx answer.
// A body larger than MaxContentSize is an error rather than silently truncated.
func (c *HTTPClient) Download(ctx context.Context, rawURL string, headers map[string]string) (*HTTPResponse, error) {
	resp, err := c.Do(&HTTPRequest{
		URL:     rawURL,
		Method:  http.MethodGet,
		Headers: headers,
		Context: ctx,
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, NewStatusError(resp, rawURL)
	}
	if resp.Truncated {
		return nil, common.NewValidationError("content_length", len(resp.Body), fmt.Sprintf("response exceeds %d bytes", c.config.MaxContentSize))
	}

	c.logger.Debug().
		Str("url", rawURL).
		Int("content_size", len(resp.Body)).
		Str("content_type", resp.Headers["Content-Type"]).
		Msg("Successfully fetched content")

	return resp, nil
}

// NewStatusError converts a non-2xx response into a *common.HTTPError
func NewStatusError(resp *HTTPResponse, rawURL string) error {
	errorBody := resp.Body
	if len(errorBody) > maxErrorBodyLen {
		errorBody = errorBody[:maxErrorBodyLen]
	}
	return common.NewHTTPErrorWithURL(resp.StatusCode, string(errorBody), rawURL)
}
