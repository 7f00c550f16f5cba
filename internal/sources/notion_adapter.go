package sources

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/piiwatch/internal/attachments"
	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/aleister1102/piiwatch/internal/models"
	"github.com/aleister1102/piiwatch/internal/notion"
	"github.com/rs/zerolog"
)

// nested blocks (toggles, list children) are read this many levels deep
const maxBlockDepth = 3

// NotionAPI is the subset of the Notion client the adapter needs
type NotionAPI interface {
	QueryRecords(ctx context.Context, databaseID string, since time.Time) ([]notion.Record, error)
	ArchiveRecord(ctx context.Context, pageID string) error
	ListBlocks(ctx context.Context, blockID string) ([]notion.Block, error)
}

// NotionAdapter exposes database records as content items
type NotionAdapter struct {
	api             NotionAPI
	files           attachments.Fetcher
	synthesizedHost string
	logger          zerolog.Logger

	mu       sync.Mutex
	returned map[string]*editWindow // by database id
}

// editWindow remembers which record edits were already handed out for the current query
// minute. The query filter has minute precision, so every poll within a minute sees the same
// records again.
type editWindow struct {
	start time.Time
	edits map[string]time.Time // page id -> last_edited_time
}

// filterSeen drops records whose current edit was already returned and remembers the rest.
// Entries older than the query window are pruned since the query can no longer return them.
func (a *NotionAdapter) filterSeen(databaseID string, since time.Time, records []notion.Record) []notion.Record {
	start := since.UTC().Truncate(time.Minute)

	a.mu.Lock()
	defer a.mu.Unlock()

	w, ok := a.returned[databaseID]
	if !ok {
		w = &editWindow{start: start, edits: make(map[string]time.Time)}
		a.returned[databaseID] = w
	}
	if !start.Equal(w.start) {
		for id, edited := range w.edits {
			if edited.Before(start) {
				delete(w.edits, id)
			}
		}
		w.start = start
	}

	fresh := records[:0:0]
	for _, record := range records {
		if record.LastEditedTime.IsZero() {
			fresh = append(fresh, record)
			continue
		}
		if prev, ok := w.edits[record.ID]; ok && prev.Equal(record.LastEditedTime) {
			continue
		}
		w.edits[record.ID] = record.LastEditedTime
		fresh = append(fresh, record)
	}
	return fresh
}

// NewNotionAdapter creates the record-database adapter. Authors without a visible email get
// "<user-id>@<synthesizedHost>".
func NewNotionAdapter(api NotionAPI, files attachments.Fetcher, synthesizedHost string, logger zerolog.Logger) *NotionAdapter {
	return &NotionAdapter{
		api:             api,
		files:           files,
		synthesizedHost: synthesizedHost,
		logger:          logger.With().Str("component", "NotionAdapter").Logger(),
		returned:        make(map[string]*editWindow),
	}
}

func (a *NotionAdapter) Kind() models.SourceKind { return models.SourceKindRecordDatabase }

// ListNew returns records edited at or after since with their page text and attachments.
// An edit already returned by an earlier call is not returned again.
func (a *NotionAdapter) ListNew(ctx context.Context, source models.MonitoredSource, since time.Time) ([]models.ContentItem, error) {
	records, err := a.api.QueryRecords(ctx, source.ID, since)
	if err != nil {
		return nil, common.WrapErrorf(err, "query database %s", source.Name)
	}

	records = a.filterSeen(source.ID, since, records)
	items := make([]models.ContentItem, 0, len(records))
	for _, record := range records {
		if record.Archived {
			continue
		}
		items = append(items, a.toItem(ctx, source, record))
	}
	return items, nil
}

func (a *NotionAdapter) toItem(ctx context.Context, source models.MonitoredSource, record notion.Record) models.ContentItem {
	item := models.ContentItem{
		SourceID:  source.ID,
		Kind:      models.SourceKindRecordDatabase,
		ID:        record.ID,
		AuthorID:  record.CreatedBy.ID,
		Fields:    record.Fields,
		CreatedAt: record.CreatedTime,
		Permalink: record.URL,
	}
	if record.CreatedBy.ID != "" {
		createdBy := record.CreatedBy
		item.CreatedBy = &createdBy
	}
	if record.LastEditedBy.ID != "" {
		lastEditedBy := record.LastEditedBy
		item.LastEditedBy = &lastEditedBy
	}
	if item.AuthorID == "" {
		item.AuthorID = record.LastEditedBy.ID
	}

	for _, field := range record.Fields {
		if field.Kind != models.FieldFiles {
			continue
		}
		for _, f := range field.Files {
			item.Attachments = append(item.Attachments, models.NewAttachment(f.Name, f.URL, ""))
		}
	}

	var lines []string
	if err := a.collectBlocks(ctx, record.ID, 1, &lines, &item.Attachments); err != nil {
		// the record is still evaluated on its properties
		a.logger.Warn().Err(err).Str("record", record.ID).Msg("Failed to read page content")
	}
	item.Text = strings.Join(lines, "\n")
	return item
}

func (a *NotionAdapter) collectBlocks(ctx context.Context, blockID string, depth int, lines *[]string, atts *[]models.Attachment) error {
	blocks, err := a.api.ListBlocks(ctx, blockID)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		if text := strings.TrimSpace(b.Text); text != "" {
			*lines = append(*lines, text)
		}
		if b.File != nil && b.File.URL != "" {
			*atts = append(*atts, models.NewAttachment(b.File.Name, b.File.URL, ""))
		}
		if b.HasChildren && depth < maxBlockDepth {
			if err := a.collectBlocks(ctx, b.ID, depth+1, lines, atts); err != nil {
				return err
			}
		}
	}
	return nil
}

// Remove archives the record
func (a *NotionAdapter) Remove(ctx context.Context, item models.ContentItem) error {
	if err := a.api.ArchiveRecord(ctx, item.ID); err != nil {
		return common.WrapErrorf(err, "archive record %s", item.ID)
	}
	return nil
}

// ResolveAuthorEmail prefers a created_by then last_edited_by property carrying an email,
// then the page-level users, and otherwise synthesizes an address from the author id
func (a *NotionAdapter) ResolveAuthorEmail(_ context.Context, item models.ContentItem) (models.AuthorEmail, error) {
	for _, kind := range []models.FieldKind{models.FieldCreatedBy, models.FieldLastEditedBy} {
		for _, field := range item.Fields {
			if field.Kind != kind {
				continue
			}
			if person, ok := field.FirstPerson(); ok && person.Email != "" {
				return models.ResolvedEmail(person.Email), nil
			}
		}
	}
	for _, ref := range []*models.UserRef{item.CreatedBy, item.LastEditedBy} {
		if ref != nil && ref.Email != "" {
			return models.ResolvedEmail(ref.Email), nil
		}
	}

	if item.AuthorID == "" {
		return models.NoEmail(), nil
	}
	return models.SynthesizedEmail(fmt.Sprintf("%s@%s", item.AuthorID, a.synthesizedHost)), nil
}

// Fetch downloads a record file; hosted file links are pre-signed
func (a *NotionAdapter) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	return a.files.Fetch(ctx, url)
}
