package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/aleister1102/piiwatch/internal/config"
	"github.com/aleister1102/piiwatch/internal/models"
	"github.com/rs/zerolog"
)

// NotificationHelper turns pipeline events into operator alerts.
// Alerts identify items by id only; the flagged content is never forwarded.
type NotificationHelper struct {
	discordNotifier *DiscordNotifier
	cfg             config.NotificationConfig
	logger          zerolog.Logger
}

// NewNotificationHelper creates a new NotificationHelper.
func NewNotificationHelper(dn *DiscordNotifier, cfg config.NotificationConfig, logger zerolog.Logger) *NotificationHelper {
	return &NotificationHelper{
		discordNotifier: dn,
		cfg:             cfg,
		logger:          logger.With().Str("component", "NotificationHelper").Logger(),
	}
}

// NotifyRemediation reports a remediation attempt. Negative verdicts are never reported.
// Send failures are logged and swallowed.
func (nh *NotificationHelper) NotifyRemediation(ctx context.Context, event models.RemediationEvent) {
	if nh == nil || !nh.discordNotifier.Enabled() {
		return
	}

	switch event.Result.Outcome {
	case models.OutcomeNoAction:
		return
	case models.OutcomeProcessed:
		if !nh.cfg.NotifyOnRemediation {
			return
		}
	case models.OutcomeError:
		if !nh.cfg.NotifyOnFailure {
			return
		}
	}

	payload := FormatRemediationMessage(event, nh.cfg)

	// the tick context may already be cancelled during shutdown
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
	defer cancel()

	if err := nh.discordNotifier.SendNotification(sendCtx, payload); err != nil {
		nh.logger.Error().Err(err).Str("item_id", event.ItemID).Msg("Failed to send remediation notification")
	}
}

// FormatRemediationMessage builds the Discord payload for a remediation event
func FormatRemediationMessage(event models.RemediationEvent, cfg config.NotificationConfig) models.DiscordMessagePayload {
	title, color := remediationTitle(event.Result)

	embed := NewDiscordEmbedBuilder().
		WithTitle(title).
		WithDescription(fmt.Sprintf("Flagged content in %s `%s`", sourceNoun(event.Source.Kind), event.Source.Name)).
		WithColor(color).
		WithTimestamp(event.OccurredAt).
		AddField("Item", "`"+event.ItemID+"`", true).
		AddField("Author", authorValue(event.AuthorID), true).
		AddField("State", string(event.Result.State), true).
		AddField("Error", truncate(event.Error, MaxErrorTextLength), false).
		WithFooter(DiscordUsername).
		Build()

	builder := NewDiscordMessagePayloadBuilder().
		WithUsername(DiscordUsername).
		AddEmbed(embed)

	if event.Result.Outcome == models.OutcomeError && len(cfg.MentionRoleIDs) > 0 {
		mentions := make([]string, 0, len(cfg.MentionRoleIDs))
		for _, id := range cfg.MentionRoleIDs {
			mentions = append(mentions, "<@&"+id+">")
		}
		builder.WithContent(strings.Join(mentions, " ")).
			WithAllowedMentions(models.AllowedMentions{Roles: cfg.MentionRoleIDs})
	}
	return builder.Build()
}

func remediationTitle(result models.RemediationResult) (string, int) {
	switch result.State {
	case models.StateNotified:
		return "PII removed and author notified", SuccessEmbedColor
	case models.StateNotifyFailed:
		return "PII removed, author notification failed", WarningEmbedColor
	case models.StateRemovalFailed:
		return "PII detected, removal failed", ErrorEmbedColor
	case models.StateIdentityFailed:
		return "PII detected, author could not be resolved", ErrorEmbedColor
	default:
		return "PII remediation " + string(result.State), WarningEmbedColor
	}
}

func sourceNoun(kind models.SourceKind) string {
	if kind == models.SourceKindRecordDatabase {
		return "database"
	}
	return "channel"
}

func authorValue(id string) string {
	if id == "" {
		return "unknown"
	}
	return "`" + id + "`"
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
