package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/aleister1102/piiwatch/internal/config"
	"github.com/aleister1102/piiwatch/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageFixture = `{
  "object": "page",
  "id": "page-1",
  "url": "https://www.notion.so/page-1",
  "created_time": "2024-05-01T10:00:00.000Z",
  "last_edited_time": "2024-05-01T10:05:00.000Z",
  "created_by": {"object": "user", "id": "user-1"},
  "last_edited_by": {"object": "user", "id": "user-2"},
  "properties": {
    "Name": {"id": "title", "type": "title", "title": [{"plain_text": "Quarterly "}, {"plain_text": "Report"}]},
    "Notes": {"id": "n", "type": "rich_text", "rich_text": [{"plain_text": "no personal data here"}]},
    "Score": {"id": "s", "type": "number", "number": 4.5},
    "Empty": {"id": "e", "type": "number", "number": null},
    "Status": {"id": "st", "type": "select", "select": {"name": "Open"}},
    "Tags": {"id": "t", "type": "multi_select", "multi_select": [{"name": "a"}, {"name": "b"}]},
    "When": {"id": "w", "type": "date", "date": {"start": "2024-05-01", "end": "2024-05-03"}},
    "Owner": {"id": "o", "type": "people", "people": [{"object": "user", "id": "user-3", "name": "Ana", "person": {"email": "ana@example.com"}}]},
    "Done": {"id": "d", "type": "checkbox", "checkbox": true},
    "Link": {"id": "l", "type": "url", "url": "https://example.com"},
    "Contact": {"id": "c", "type": "email", "email": "someone@example.com"},
    "Phone": {"id": "p", "type": "phone_number", "phone_number": "+1 555 0100"},
    "Scans": {"id": "f", "type": "files", "files": [
      {"name": "id.png", "type": "file", "file": {"url": "https://s3.example/id.png?sig=1"}},
      {"name": "", "type": "external", "external": {"url": "https://cdn.example/docs/contract%20v2.pdf"}}
    ]},
    "Author": {"id": "cb", "type": "created_by", "created_by": {"object": "user", "id": "user-1", "name": "Bo", "person": {"email": "bo@example.com"}}},
    "Formula": {"id": "fx", "type": "formula", "formula": {"type": "string", "string": "x"}}
  }
}`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.NotionConfig{
		APIKey:             "secret_test",
		APIBaseURL:         srv.URL,
		HTTPTimeoutSeconds: 5,
		PageSize:           1,
	}, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func TestParseRecord_DecodesPropertiesInOrder(t *testing.T) {
	page := parseQueryPage([]byte(`{"results": [` + pageFixture + `], "has_more": false}`))
	require.Len(t, page.records, 1)
	record := page.records[0]

	assert.Equal(t, "page-1", record.ID)
	assert.Equal(t, "user-1", record.CreatedBy.ID)
	assert.Equal(t, "user-2", record.LastEditedBy.ID)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC), record.LastEditedTime)

	names := make([]string, 0, len(record.Fields))
	for _, f := range record.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Name", "Notes", "Score", "Empty", "Status", "Tags", "When", "Owner", "Done", "Link", "Contact", "Phone", "Scans", "Author", "Formula"}, names)

	byName := make(map[string]models.Field, len(record.Fields))
	for _, f := range record.Fields {
		byName[f.Name] = f
	}

	assert.Equal(t, "Quarterly Report", byName["Name"].Text)
	require.NotNil(t, byName["Score"].Number)
	assert.Equal(t, 4.5, *byName["Score"].Number)
	assert.Nil(t, byName["Empty"].Number)
	assert.Equal(t, "Open", byName["Status"].Text)
	assert.Equal(t, []string{"a", "b"}, byName["Tags"].Options)
	assert.Equal(t, &models.DateRange{Start: "2024-05-01", End: "2024-05-03"}, byName["When"].Date)
	assert.Equal(t, []models.UserRef{{ID: "user-3", Name: "Ana", Email: "ana@example.com"}}, byName["Owner"].People)
	assert.True(t, byName["Done"].Checked)
	assert.Equal(t, "+1 555 0100", byName["Phone"].Text)
	assert.Equal(t, []models.FileRef{
		{Name: "id.png", URL: "https://s3.example/id.png?sig=1"},
		{Name: "contract v2.pdf", URL: "https://cdn.example/docs/contract%20v2.pdf"},
	}, byName["Scans"].Files)

	author, ok := byName["Author"].FirstPerson()
	require.True(t, ok)
	assert.Equal(t, "bo@example.com", author.Email)

	assert.Equal(t, models.FieldUnknown, byName["Formula"].Kind)
	assert.Equal(t, "formula", byName["Formula"].RawType)
}

func TestParseBlock(t *testing.T) {
	blocks, hasMore, next := parseBlocksPage([]byte(`{
	  "results": [
	    {"id": "b1", "type": "paragraph", "has_children": false, "paragraph": {"rich_text": [{"plain_text": "Call me at "}, {"plain_text": "555-0100"}]}},
	    {"id": "b2", "type": "image", "image": {"type": "file", "file": {"url": "https://s3.example/scan.jpg"}, "caption": []}},
	    {"id": "b3", "type": "pdf", "pdf": {"type": "external", "external": {"url": "https://cdn.example/a.pdf"}}},
	    {"id": "b4", "type": "toggle", "has_children": true, "toggle": {"rich_text": []}},
	    {"id": "b5", "type": "divider", "divider": {}}
	  ],
	  "has_more": true,
	  "next_cursor": "cur"
	}`))

	assert.True(t, hasMore)
	assert.Equal(t, "cur", next)
	require.Len(t, blocks, 5)

	assert.Equal(t, "Call me at 555-0100", blocks[0].Text)
	assert.Nil(t, blocks[0].File)

	require.NotNil(t, blocks[1].File)
	assert.Equal(t, models.FileRef{Name: "scan.jpg", URL: "https://s3.example/scan.jpg"}, *blocks[1].File)
	require.NotNil(t, blocks[2].File)
	assert.Equal(t, "a.pdf", blocks[2].File.Name)

	assert.True(t, blocks[3].HasChildren)
	assert.Empty(t, blocks[4].Text)
	assert.Nil(t, blocks[4].File)
}

func TestQueryRecords_FiltersAndPaginates(t *testing.T) {
	since := time.Date(2024, 5, 1, 10, 0, 42, 0, time.UTC)
	var cursors []string

	mux := http.NewServeMux()
	mux.HandleFunc("/databases/db-1/query", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret_test", r.Header.Get("Authorization"))
		assert.Equal(t, config.DefaultNotionAPIVersion, r.Header.Get("Notion-Version"))

		var body struct {
			Filter struct {
				Timestamp      string            `json:"timestamp"`
				LastEditedTime map[string]string `json:"last_edited_time"`
			} `json:"filter"`
			PageSize    int    `json:"page_size"`
			StartCursor string `json:"start_cursor"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "last_edited_time", body.Filter.Timestamp)
		assert.Equal(t, "2024-05-01T10:00:00Z", body.Filter.LastEditedTime["on_or_after"])
		assert.Equal(t, 1, body.PageSize)
		cursors = append(cursors, body.StartCursor)

		if body.StartCursor == "" {
			_, _ = w.Write([]byte(`{"results": [` + pageFixture + `], "has_more": true, "next_cursor": "c2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"results": [{"id": "page-2", "properties": {}}], "has_more": false, "next_cursor": null}`))
	})

	client := newTestClient(t, mux)
	records, err := client.QueryRecords(context.Background(), "db-1", since)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "c2"}, cursors)
	require.Len(t, records, 2)
	assert.Equal(t, "page-1", records[0].ID)
	assert.Equal(t, "page-2", records[1].ID)
}

func TestArchiveRecord(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pages/page-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body map[string]bool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]bool{"archived": true}, body)
		_, _ = w.Write([]byte(`{"object": "page", "id": "page-1", "archived": true}`))
	})
	mux.HandleFunc("/pages/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"object": "error", "status": 404, "code": "object_not_found"}`))
	})

	client := newTestClient(t, mux)
	require.NoError(t, client.ArchiveRecord(context.Background(), "page-1"))

	err := client.ArchiveRecord(context.Background(), "missing")
	var httpErr *common.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Contains(t, httpErr.Message, "object_not_found")
}

func TestListBlocks_FollowsCursor(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/blocks/page-1/children", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page_size"))
		if r.URL.Query().Get("start_cursor") == "" {
			_, _ = w.Write([]byte(`{"results": [{"id": "b1", "type": "paragraph", "paragraph": {"rich_text": [{"plain_text": "one"}]}}], "has_more": true, "next_cursor": "n"}`))
			return
		}
		_, _ = w.Write([]byte(`{"results": [{"id": "b2", "type": "quote", "quote": {"rich_text": [{"plain_text": "two"}]}}], "has_more": false}`))
	})

	client := newTestClient(t, mux)
	blocks, err := client.ListBlocks(context.Background(), "page-1")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "one", blocks[0].Text)
	assert.Equal(t, "two", blocks[1].Text)
}
