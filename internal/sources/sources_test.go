package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/aleister1102/piiwatch/internal/metrics"
	"github.com/aleister1102/piiwatch/internal/models"
	"github.com/aleister1102/piiwatch/internal/notion"
	"github.com/aleister1102/piiwatch/internal/slack"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlack struct {
	channels     []slack.Channel
	listCalls    int
	messages     map[string][]slack.Message
	historyErr   error
	deleted      []string
	users        []slack.User
	lastSince    time.Time
	downloadURLs []string
}

func (f *fakeSlack) ListChannels(ctx context.Context) ([]slack.Channel, error) {
	f.listCalls++
	return f.channels, nil
}

func (f *fakeSlack) ListMessages(ctx context.Context, channelID string, since time.Time) ([]slack.Message, error) {
	f.lastSince = since
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.messages[channelID], nil
}

func (f *fakeSlack) DeleteMessage(ctx context.Context, channelID, ts string) error {
	f.deleted = append(f.deleted, channelID+"/"+ts)
	return nil
}

func (f *fakeSlack) ListUsers(ctx context.Context) ([]slack.User, error) {
	return f.users, nil
}

func (f *fakeSlack) DownloadFile(ctx context.Context, url string) ([]byte, string, error) {
	f.downloadURLs = append(f.downloadURLs, url)
	return []byte("data"), "image/png", nil
}

func TestChannelResolver_PositiveOnlyCache(t *testing.T) {
	api := &fakeSlack{channels: []slack.Channel{{ID: "C1", Name: "general"}}}
	m := metrics.New()
	r := NewChannelResolver(api, time.Minute, m, zerolog.Nop())
	now := time.Unix(1700000000, 0)
	r.now = func() time.Time { return now }

	id, err := r.Resolve(context.Background(), "#general")
	require.NoError(t, err)
	assert.Equal(t, "C1", id)
	assert.Equal(t, 1, api.listCalls)

	// cached
	_, err = r.Resolve(context.Background(), "general")
	require.NoError(t, err)
	assert.Equal(t, 1, api.listCalls)

	// misses are not cached
	_, err = r.Resolve(context.Background(), "new-channel")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, 2, api.listCalls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnresolvedChannels))

	api.channels = append(api.channels, slack.Channel{ID: "C2", Name: "new-channel"})
	id, err = r.Resolve(context.Background(), "new-channel")
	require.NoError(t, err)
	assert.Equal(t, "C2", id)
	assert.Equal(t, 3, api.listCalls)

	// expired entries are refreshed; a channel that disappeared is no longer resolved
	now = now.Add(2 * time.Minute)
	api.channels = []slack.Channel{{ID: "C2", Name: "new-channel"}}
	_, err = r.Resolve(context.Background(), "general")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSlackAdapter_ListNewSkipsBotAndSystemMessages(t *testing.T) {
	since := time.Unix(1700000000, 0)
	api := &fakeSlack{
		channels: []slack.Channel{{ID: "C1", Name: "support"}},
		messages: map[string][]slack.Message{"C1": {
			{TS: "1700000001.000100", User: "U1", Text: "My email is test@example.com"},
			{TS: "1700000002.000000", Subtype: "channel_join", User: "U2", Text: "joined"},
			{TS: "1700000003.000000", BotID: "B1", Text: "automated"},
			{TS: "1700000004.000000", User: "UBOT", Text: "Your message was removed"},
			{TS: "1700000005.000000", Subtype: "file_share", User: "U3", Files: []slack.File{{Name: "id.png", Mimetype: "image/png", URLPrivateDownload: "https://files.slack/id.png"}}},
		}},
	}
	adapter := NewSlackAdapter(api, NewChannelResolver(api, time.Minute, nil, zerolog.Nop()), "UBOT", zerolog.Nop())

	items, err := adapter.ListNew(context.Background(), models.NewChannelSource("#support"), since)
	require.NoError(t, err)
	assert.Equal(t, since, api.lastSince)

	require.Len(t, items, 2)
	assert.Equal(t, "1700000001.000100", items[0].ID)
	assert.Equal(t, "U1", items[0].AuthorID)
	assert.Equal(t, "C1", items[0].ChannelID)
	assert.Equal(t, "#support", items[0].SourceID)
	assert.Equal(t, models.SourceKindMessageChannel, items[0].Kind)

	require.Len(t, items[1].Attachments, 1)
	assert.Equal(t, models.AttachmentImage, items[1].Attachments[0].Kind)

	data, _, err := adapter.Fetch(context.Background(), items[1].Attachments[0].URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
	assert.Equal(t, []string{"https://files.slack/id.png"}, api.downloadURLs)
}

func TestSlackAdapter_ErrorsPropagate(t *testing.T) {
	api := &fakeSlack{channels: []slack.Channel{{ID: "C1", Name: "support"}}, historyErr: errors.New("ratelimited")}
	adapter := NewSlackAdapter(api, NewChannelResolver(api, time.Minute, nil, zerolog.Nop()), "", zerolog.Nop())

	_, err := adapter.ListNew(context.Background(), models.NewChannelSource("support"), time.Now())
	assert.ErrorContains(t, err, "ratelimited")

	_, err = adapter.ListNew(context.Background(), models.NewChannelSource("missing"), time.Now())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSlackAdapter_RemoveAndResolve(t *testing.T) {
	api := &fakeSlack{users: []slack.User{{ID: "U1", Profile: slack.UserProfile{Email: "u1@example.com"}}}}
	adapter := NewSlackAdapter(api, nil, "", zerolog.Nop())
	item := models.ContentItem{ID: "1700000001.000100", ChannelID: "C1", AuthorID: "U1"}

	require.NoError(t, adapter.Remove(context.Background(), item))
	assert.Equal(t, []string{"C1/1700000001.000100"}, api.deleted)

	email, err := adapter.ResolveAuthorEmail(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, models.ResolvedEmail("u1@example.com"), email)

	email, err = adapter.ResolveAuthorEmail(context.Background(), models.ContentItem{AuthorID: "U9"})
	require.NoError(t, err)
	assert.Equal(t, models.EmailNotFound, email.Status)
}

type fakeNotion struct {
	records    []notion.Record
	blocks     map[string][]notion.Block
	blockErr   map[string]error
	archived   []string
	blockCalls int
}

// QueryRecords applies the minute-precision on_or_after filter of the real API
func (f *fakeNotion) QueryRecords(ctx context.Context, databaseID string, since time.Time) ([]notion.Record, error) {
	from := since.UTC().Truncate(time.Minute)
	var out []notion.Record
	for _, r := range f.records {
		if !r.LastEditedTime.IsZero() && r.LastEditedTime.Before(from) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeNotion) ArchiveRecord(ctx context.Context, pageID string) error {
	f.archived = append(f.archived, pageID)
	return nil
}

func (f *fakeNotion) ListBlocks(ctx context.Context, blockID string) ([]notion.Block, error) {
	f.blockCalls++
	if err := f.blockErr[blockID]; err != nil {
		return nil, err
	}
	return f.blocks[blockID], nil
}

func TestNotionAdapter_ListNewAssemblesItems(t *testing.T) {
	api := &fakeNotion{
		records: []notion.Record{
			{
				ID:        "page-1",
				URL:       "https://www.notion.so/page-1",
				CreatedBy: models.UserRef{ID: "user-1"},
				Fields: []models.Field{
					{Name: "Name", Kind: models.FieldTitle, Text: "Report"},
					{Name: "Scans", Kind: models.FieldFiles, Files: []models.FileRef{{Name: "passport.jpg", URL: "https://s3/passport.jpg"}}},
				},
			},
			{ID: "page-archived", Archived: true},
			{ID: "page-2", LastEditedBy: models.UserRef{ID: "user-2"}},
		},
		blocks: map[string][]notion.Block{
			"page-1": {
				{ID: "b1", Text: "first paragraph"},
				{ID: "b2", Text: "  ", HasChildren: true},
				{ID: "b3", File: &models.FileRef{Name: "contract.pdf", URL: "https://s3/contract.pdf"}},
			},
			"b2": {{ID: "b2-1", Text: "nested"}},
		},
		blockErr: map[string]error{"page-2": errors.New("boom")},
	}
	adapter := NewNotionAdapter(api, nil, "notion.invalid", zerolog.Nop())

	items, err := adapter.ListNew(context.Background(), models.NewDatabaseSource("db-1"), time.Now())
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "page-1", first.ID)
	assert.Equal(t, "user-1", first.AuthorID)
	assert.Equal(t, models.SourceKindRecordDatabase, first.Kind)
	assert.Equal(t, "first paragraph\nnested", first.Text)
	require.Len(t, first.Attachments, 2)
	assert.Equal(t, "passport.jpg", first.Attachments[0].Name)
	assert.Equal(t, models.AttachmentImage, first.Attachments[0].Kind)
	assert.Equal(t, models.AttachmentDocument, first.Attachments[1].Kind)
	assert.Equal(t, "first paragraph\nnested\nName: Report\nScans: passport.jpg", first.AssembleText())

	// block failures leave the record evaluable on its properties
	second := items[1]
	assert.Equal(t, "page-2", second.ID)
	assert.Equal(t, "user-2", second.AuthorID)
	assert.Empty(t, second.Text)
}

func TestNotionAdapter_ResolveAuthorEmail(t *testing.T) {
	adapter := NewNotionAdapter(&fakeNotion{}, nil, "notion.invalid", zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name string
		item models.ContentItem
		want models.AuthorEmail
	}{
		{
			name: "created_by property wins",
			item: models.ContentItem{
				AuthorID: "user-1",
				Fields: []models.Field{
					{Name: "Editor", Kind: models.FieldLastEditedBy, People: []models.UserRef{{ID: "user-2", Email: "editor@example.com"}}},
					{Name: "Creator", Kind: models.FieldCreatedBy, People: []models.UserRef{{ID: "user-1", Email: "creator@example.com"}}},
				},
			},
			want: models.ResolvedEmail("creator@example.com"),
		},
		{
			name: "last_edited_by property when creator has no email",
			item: models.ContentItem{
				AuthorID: "user-1",
				Fields: []models.Field{
					{Name: "Creator", Kind: models.FieldCreatedBy, People: []models.UserRef{{ID: "user-1"}}},
					{Name: "Editor", Kind: models.FieldLastEditedBy, People: []models.UserRef{{ID: "user-2", Email: "editor@example.com"}}},
				},
			},
			want: models.ResolvedEmail("editor@example.com"),
		},
		{
			name: "page-level user",
			item: models.ContentItem{AuthorID: "user-1", CreatedBy: &models.UserRef{ID: "user-1", Email: "page@example.com"}},
			want: models.ResolvedEmail("page@example.com"),
		},
		{
			name: "synthesized from author id",
			item: models.ContentItem{AuthorID: "user-1"},
			want: models.SynthesizedEmail("user-1@notion.invalid"),
		},
		{
			name: "no author",
			item: models.ContentItem{},
			want: models.NoEmail(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := adapter.ResolveAuthorEmail(ctx, tt.item)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotionAdapter_RemoveArchives(t *testing.T) {
	api := &fakeNotion{}
	adapter := NewNotionAdapter(api, nil, "notion.invalid", zerolog.Nop())

	require.NoError(t, adapter.Remove(context.Background(), models.ContentItem{ID: "page-1"}))
	assert.Equal(t, []string{"page-1"}, api.archived)
}

func TestNotionAdapter_SameMinutePollsReturnEachEditOnce(t *testing.T) {
	edited := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	api := &fakeNotion{records: []notion.Record{
		{ID: "page-1", LastEditedTime: edited, CreatedBy: models.UserRef{ID: "user-1"}},
	}}
	adapter := NewNotionAdapter(api, nil, "notion.invalid", zerolog.Nop())
	src := models.NewDatabaseSource("db-1")
	ctx := context.Background()

	var returned int
	since := edited.Add(41 * time.Second)
	for i := 0; i < 10; i++ {
		items, err := adapter.ListNew(ctx, src, since)
		require.NoError(t, err)
		returned += len(items)
		since = since.Add(time.Second)
	}
	assert.Equal(t, 1, returned)
	assert.Equal(t, 1, api.blockCalls, "page content is only read for new edits")

	// a later edit of the same page is a new item
	api.records[0].LastEditedTime = edited.Add(time.Minute)
	items, err := adapter.ListNew(ctx, src, since)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "page-1", items[0].ID)

	// databases are tracked separately
	items, err = adapter.ListNew(ctx, models.NewDatabaseSource("db-2"), since)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestNotionAdapter_PrunesEditsOutsideWindow(t *testing.T) {
	edited := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	api := &fakeNotion{records: []notion.Record{{ID: "page-1", LastEditedTime: edited}}}
	adapter := NewNotionAdapter(api, nil, "notion.invalid", zerolog.Nop())
	src := models.NewDatabaseSource("db-1")

	_, err := adapter.ListNew(context.Background(), src, edited)
	require.NoError(t, err)
	require.Len(t, adapter.returned["db-1"].edits, 1)

	_, err = adapter.ListNew(context.Background(), src, edited.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, adapter.returned["db-1"].edits)
}
