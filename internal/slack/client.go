// Package slack is a thin client for the Slack Web API methods the pipeline uses.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/aleister1102/piiwatch/internal/config"
	"github.com/aleister1102/piiwatch/internal/httpclient"
	"github.com/rs/zerolog"
)

// Client calls the Slack Web API with a bot token
type Client struct {
	http     *httpclient.HTTPClient
	files    *httpclient.HTTPClient
	baseURL  string
	token    string
	pageSize int
	logger   zerolog.Logger
}

// Option customizes a Client
type Option func(*options)

type options struct {
	maxDownloadBytes int
}

// WithDownloadLimit rejects file downloads larger than n bytes
func WithDownloadLimit(n int) Option {
	return func(o *options) { o.maxDownloadBytes = n }
}

// NewClient creates a Slack client from configuration
func NewClient(cfg config.SlackConfig, logger zerolog.Logger, opts ...Option) (*Client, error) {
	logger = logger.With().Str("component", "SlackClient").Logger()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	timeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	httpClient, err := httpclient.NewHTTPClientBuilder(logger).
		WithTimeout(timeout).
		WithRateLimit(cfg.RequestsPerSecond).
		WithRetry(httpclient.DefaultRetryHandlerConfig(cfg.MaxRetries)).
		Build()
	if err != nil {
		return nil, common.WrapError(err, "failed to build slack HTTP client")
	}

	// file downloads are not paced against the Web API tier limits
	filesClient, err := httpclient.NewHTTPClientBuilder(logger).
		WithTimeout(timeout).
		WithMaxContentSize(o.maxDownloadBytes).
		WithRetry(httpclient.DefaultRetryHandlerConfig(cfg.MaxRetries)).
		Build()
	if err != nil {
		return nil, common.WrapError(err, "failed to build slack file client")
	}

	pageSize := cfg.HistoryPageSize
	if pageSize <= 0 {
		pageSize = config.DefaultSlackHistoryPageSize
	}

	return &Client{
		http:     httpClient,
		files:    filesClient,
		baseURL:  strings.TrimRight(cfg.APIBaseURL, "/"),
		token:    cfg.BotToken,
		pageSize: pageSize,
		logger:   logger,
	}, nil
}

func (c *Client) authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.token}
}

// get calls a read method with query parameters and decodes the reply into out
func (c *Client) get(ctx context.Context, method string, params url.Values, out any) error {
	endpoint := c.baseURL + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	resp, err := c.http.DoJSON(ctx, http.MethodGet, endpoint, c.authHeaders(), nil)
	if err != nil {
		return common.WrapErrorf(err, "slack %s", method)
	}
	return decode(method, resp.Body, out)
}

// post calls a write method with a JSON body and decodes the reply into out
func (c *Client) post(ctx context.Context, method string, payload any, out any) error {
	resp, err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/"+method, c.authHeaders(), payload)
	if err != nil {
		return common.WrapErrorf(err, "slack %s", method)
	}
	return decode(method, resp.Body, out)
}

// send calls a write method that must not take effect twice. Transport failures and 5xx
// answers are not replayed because Slack may already have acted on them.
func (c *Client) send(ctx context.Context, method string, payload any, out any) error {
	resp, err := c.http.DoJSONAtMostOnce(ctx, http.MethodPost, c.baseURL+"/"+method, c.authHeaders(), payload)
	if err != nil {
		return common.WrapErrorf(err, "slack %s", method)
	}
	return decode(method, resp.Body, out)
}

type okChecker interface {
	apiError() (bool, string)
}

func (e *envelope) apiError() (bool, string) { return e.OK, e.Error }

func decode(method string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return common.WrapErrorf(err, "slack %s: decode response", method)
	}
	if checker, ok := out.(okChecker); ok {
		if isOK, code := checker.apiError(); !isOK {
			return &APIError{Method: method, Code: code}
		}
	}
	return nil
}

// AuthTest returns the user id of the bot the token belongs to
func (c *Client) AuthTest(ctx context.Context) (string, error) {
	var resp authTestResponse
	if err := c.post(ctx, "auth.test", nil, &resp); err != nil {
		return "", err
	}
	return resp.UserID, nil
}

// ListMessages returns top-level messages posted at or after since, oldest first
func (c *Client) ListMessages(ctx context.Context, channelID string, since time.Time) ([]Message, error) {
	var all []Message
	cursor := ""
	for {
		params := url.Values{
			"channel":   {channelID},
			"oldest":    {FormatTS(since)},
			"inclusive": {"true"},
			"limit":     {strconv.Itoa(c.pageSize)},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp historyResponse
		if err := c.get(ctx, "conversations.history", params, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Messages...)

		cursor = resp.ResponseMetadata.NextCursor
		if !resp.HasMore || cursor == "" {
			break
		}
	}

	// the API pages newest first
	slices.Reverse(all)
	return all, nil
}

// DeleteMessage removes a message. A message that is already gone counts as removed, which
// also covers a retry after the first attempt's response was lost.
func (c *Client) DeleteMessage(ctx context.Context, channelID, ts string) error {
	var resp envelope
	err := c.post(ctx, "chat.delete", map[string]string{"channel": channelID, "ts": ts}, &resp)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == codeMessageNotFound {
		c.logger.Debug().Str("channel", channelID).Str("ts", ts).Msg("Message already deleted")
		return nil
	}
	return err
}

// OpenDM opens (or reuses) a direct-message channel with userID
func (c *Client) OpenDM(ctx context.Context, userID string) (string, error) {
	var resp openResponse
	if err := c.post(ctx, "conversations.open", map[string]string{"users": userID}, &resp); err != nil {
		return "", err
	}
	if resp.Channel.ID == "" {
		return "", common.NewError("slack conversations.open returned no channel for user %s", userID)
	}
	return resp.Channel.ID, nil
}

// SendMessage posts text to a channel or DM
func (c *Client) SendMessage(ctx context.Context, channel, text string) error {
	var resp envelope
	return c.send(ctx, "chat.postMessage", map[string]string{"channel": channel, "text": text}, &resp)
}

// ListChannels lists public and private channels visible to the bot, excluding archived ones
func (c *Client) ListChannels(ctx context.Context) ([]Channel, error) {
	var all []Channel
	cursor := ""
	for {
		params := url.Values{
			"types":            {"public_channel,private_channel"},
			"exclude_archived": {"true"},
			"limit":            {strconv.Itoa(config.DefaultSlackDirectoryPageSize)},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp channelsResponse
		if err := c.get(ctx, "conversations.list", params, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Channels...)

		if cursor = resp.ResponseMetadata.NextCursor; cursor == "" {
			return all, nil
		}
	}
}

// ListUsers lists workspace members
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var all []User
	cursor := ""
	for {
		params := url.Values{"limit": {strconv.Itoa(config.DefaultSlackDirectoryPageSize)}}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp usersResponse
		if err := c.get(ctx, "users.list", params, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Members...)

		if cursor = resp.ResponseMetadata.NextCursor; cursor == "" {
			return all, nil
		}
	}
}

// DownloadFile fetches a private file using the bot token
func (c *Client) DownloadFile(ctx context.Context, fileURL string) ([]byte, string, error) {
	headers := c.authHeaders()
	headers["Accept"] = "*/*"
	resp, err := c.files.Download(ctx, fileURL, headers)
	if err != nil {
		return nil, "", common.WrapError(err, "slack file download")
	}
	return resp.Body, resp.Headers["Content-Type"], nil
}
