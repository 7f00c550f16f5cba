package httpclient

import (
	"context"
	"net/http"
)

// HTTPRequest describes one outgoing call. Body is kept as bytes so retries can resend it.
type HTTPRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
	Context context.Context
	// AtMostOnce requests are not replayed after a transport error or a 5xx, where the
	// server may already have acted on them. 429 is still retried.
	AtMostOnce bool
}

// HTTPResponse is a fully-read response
type HTTPResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	// Truncated is set when the body exceeded MaxContentSize
	Truncated bool
}

// IsSuccess reports a 2xx status
func (r *HTTPResponse) IsSuccess() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}
