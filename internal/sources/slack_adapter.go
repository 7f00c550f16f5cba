package sources

import (
	"context"
	"time"

	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/aleister1102/piiwatch/internal/models"
	"github.com/aleister1102/piiwatch/internal/slack"
	"github.com/rs/zerolog"
)

// SlackAPI is the subset of the Slack client the adapter needs
type SlackAPI interface {
	ChannelLister
	ListMessages(ctx context.Context, channelID string, since time.Time) ([]slack.Message, error)
	DeleteMessage(ctx context.Context, channelID, ts string) error
	ListUsers(ctx context.Context) ([]slack.User, error)
	DownloadFile(ctx context.Context, url string) ([]byte, string, error)
}

// message subtypes that are still ordinary user content
var userSubtypes = map[string]bool{
	"":                 true,
	"file_share":       true,
	"thread_broadcast": true,
}

// SlackAdapter exposes channel messages as content items
type SlackAdapter struct {
	api       SlackAPI
	channels  *ChannelResolver
	botUserID string
	logger    zerolog.Logger
}

// NewSlackAdapter creates the message-channel adapter. Messages posted by botUserID are ignored.
func NewSlackAdapter(api SlackAPI, channels *ChannelResolver, botUserID string, logger zerolog.Logger) *SlackAdapter {
	return &SlackAdapter{
		api:       api,
		channels:  channels,
		botUserID: botUserID,
		logger:    logger.With().Str("component", "SlackAdapter").Logger(),
	}
}

func (a *SlackAdapter) Kind() models.SourceKind { return models.SourceKindMessageChannel }

// ListNew returns the channel's user messages posted at or after since, oldest first
func (a *SlackAdapter) ListNew(ctx context.Context, source models.MonitoredSource, since time.Time) ([]models.ContentItem, error) {
	channelID, err := a.channels.Resolve(ctx, source.ID)
	if err != nil {
		return nil, err
	}

	messages, err := a.api.ListMessages(ctx, channelID, since)
	if err != nil {
		return nil, common.WrapErrorf(err, "list messages of %s", source.Name)
	}

	items := make([]models.ContentItem, 0, len(messages))
	skipped := 0
	for _, msg := range messages {
		if !a.isUserMessage(msg) {
			skipped++
			continue
		}
		items = append(items, a.toItem(source, channelID, msg))
	}

	if skipped > 0 {
		a.logger.Debug().Str("channel", source.Name).Int("skipped", skipped).Msg("Skipped bot and system messages")
	}
	return items, nil
}

func (a *SlackAdapter) isUserMessage(msg slack.Message) bool {
	if !userSubtypes[msg.Subtype] || msg.BotID != "" || msg.User == "" {
		return false
	}
	return a.botUserID == "" || msg.User != a.botUserID
}

func (a *SlackAdapter) toItem(source models.MonitoredSource, channelID string, msg slack.Message) models.ContentItem {
	item := models.ContentItem{
		SourceID:  source.ID,
		Kind:      models.SourceKindMessageChannel,
		ID:        msg.TS,
		AuthorID:  msg.User,
		Text:      msg.Text,
		CreatedAt: msg.Time(),
		ChannelID: channelID,
	}
	for _, f := range msg.Files {
		name := f.Name
		if name == "" {
			name = f.Title
		}
		item.Attachments = append(item.Attachments, models.NewAttachment(name, f.DownloadURL(), f.Mimetype))
	}
	return item
}

// Remove deletes the message
func (a *SlackAdapter) Remove(ctx context.Context, item models.ContentItem) error {
	if err := a.api.DeleteMessage(ctx, item.ChannelID, item.ID); err != nil {
		return common.WrapErrorf(err, "delete message %s in %s", item.ID, item.ChannelID)
	}
	return nil
}

// ResolveAuthorEmail looks the author up in the workspace directory. Message authors are
// addressable by id, so a missing email is reported as NotFound rather than an error.
func (a *SlackAdapter) ResolveAuthorEmail(ctx context.Context, item models.ContentItem) (models.AuthorEmail, error) {
	if item.AuthorID == "" {
		return models.NoEmail(), nil
	}
	users, err := a.api.ListUsers(ctx)
	if err != nil {
		return models.NoEmail(), common.WrapError(err, "list users")
	}
	for _, u := range users {
		if u.ID == item.AuthorID && u.Profile.Email != "" {
			return models.ResolvedEmail(u.Profile.Email), nil
		}
	}
	return models.NoEmail(), nil
}

// Fetch downloads a private file with the bot token
func (a *SlackAdapter) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	return a.api.DownloadFile(ctx, url)
}
