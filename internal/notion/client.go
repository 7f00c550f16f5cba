// Package notion is a thin client for the Notion API endpoints the pipeline uses.
package notion

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/aleister1102/piiwatch/internal/config"
	"github.com/aleister1102/piiwatch/internal/httpclient"
	"github.com/rs/zerolog"
)

// Client calls the Notion API with an integration token
type Client struct {
	http     *httpclient.HTTPClient
	baseURL  string
	apiKey   string
	version  string
	pageSize int
	logger   zerolog.Logger
}

// NewClient creates a Notion client from configuration
func NewClient(cfg config.NotionConfig, logger zerolog.Logger) (*Client, error) {
	logger = logger.With().Str("component", "NotionClient").Logger()

	httpClient, err := httpclient.NewHTTPClientBuilder(logger).
		WithTimeout(time.Duration(cfg.HTTPTimeoutSeconds) * time.Second).
		WithRateLimit(cfg.RequestsPerSecond).
		WithRetry(httpclient.DefaultRetryHandlerConfig(cfg.MaxRetries)).
		Build()
	if err != nil {
		return nil, common.WrapError(err, "failed to build notion HTTP client")
	}

	version := cfg.APIVersion
	if version == "" {
		version = config.DefaultNotionAPIVersion
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = config.DefaultNotionPageSize
	}

	return &Client{
		http:     httpClient,
		baseURL:  strings.TrimRight(cfg.APIBaseURL, "/"),
		apiKey:   cfg.APIKey,
		version:  version,
		pageSize: pageSize,
		logger:   logger,
	}, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization":  "Bearer " + c.apiKey,
		"Notion-Version": c.version,
	}
}

// QueryRecords returns pages of a database edited at or after since, oldest edit first.
// last_edited_time is stored at minute precision, so the filter starts at the minute of since.
func (c *Client) QueryRecords(ctx context.Context, databaseID string, since time.Time) ([]Record, error) {
	endpoint := c.baseURL + "/databases/" + url.PathEscape(databaseID) + "/query"

	var all []Record
	cursor := ""
	for {
		payload := map[string]any{
			"filter": map[string]any{
				"timestamp": "last_edited_time",
				"last_edited_time": map[string]string{
					"on_or_after": since.UTC().Truncate(time.Minute).Format(time.RFC3339),
				},
			},
			"sorts": []map[string]string{
				{"timestamp": "last_edited_time", "direction": "ascending"},
			},
			"page_size": c.pageSize,
		}
		if cursor != "" {
			payload["start_cursor"] = cursor
		}

		resp, err := c.http.DoJSON(ctx, http.MethodPost, endpoint, c.headers(), payload)
		if err != nil {
			return nil, common.WrapErrorf(err, "notion query database %s", databaseID)
		}

		page := parseQueryPage(resp.Body)
		all = append(all, page.records...)

		if !page.hasMore || page.nextCursor == "" {
			break
		}
		cursor = page.nextCursor
	}

	c.logger.Debug().Str("database_id", databaseID).Int("records", len(all)).Msg("Queried database")
	return all, nil
}

// ArchiveRecord moves a page to the trash
func (c *Client) ArchiveRecord(ctx context.Context, pageID string) error {
	endpoint := c.baseURL + "/pages/" + url.PathEscape(pageID)
	if _, err := c.http.DoJSON(ctx, http.MethodPatch, endpoint, c.headers(), map[string]bool{"archived": true}); err != nil {
		return common.WrapErrorf(err, "notion archive page %s", pageID)
	}
	return nil
}

// ListBlocks returns the direct children of a page or block
func (c *Client) ListBlocks(ctx context.Context, blockID string) ([]Block, error) {
	var all []Block
	cursor := ""
	for {
		params := url.Values{"page_size": {strconv.Itoa(c.pageSize)}}
		if cursor != "" {
			params.Set("start_cursor", cursor)
		}
		endpoint := c.baseURL + "/blocks/" + url.PathEscape(blockID) + "/children?" + params.Encode()

		resp, err := c.http.DoJSON(ctx, http.MethodGet, endpoint, c.headers(), nil)
		if err != nil {
			return nil, common.WrapErrorf(err, "notion list blocks %s", blockID)
		}

		blocks, hasMore, next := parseBlocksPage(resp.Body)
		all = append(all, blocks...)

		if !hasMore || next == "" {
			return all, nil
		}
		cursor = next
	}
}
