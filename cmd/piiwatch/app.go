package main

import (
	"context"
	"time"

	"github.com/aleister1102/piiwatch/internal/attachments"
	"github.com/aleister1102/piiwatch/internal/classifier"
	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/aleister1102/piiwatch/internal/config"
	"github.com/aleister1102/piiwatch/internal/datastore"
	"github.com/aleister1102/piiwatch/internal/health"
	"github.com/aleister1102/piiwatch/internal/identity"
	"github.com/aleister1102/piiwatch/internal/metrics"
	"github.com/aleister1102/piiwatch/internal/models"
	"github.com/aleister1102/piiwatch/internal/notifier"
	"github.com/aleister1102/piiwatch/internal/notion"
	"github.com/aleister1102/piiwatch/internal/remediation"
	"github.com/aleister1102/piiwatch/internal/scheduler"
	"github.com/aleister1102/piiwatch/internal/slack"
	"github.com/aleister1102/piiwatch/internal/sources"
	"github.com/rs/zerolog"
)

const bytesPerMB = 1024 * 1024

// application holds every long-lived component built from configuration
type application struct {
	scheduler *scheduler.Scheduler
	health    *health.Server
	audit     *datastore.AuditStore
	logger    zerolog.Logger
}

// monitoredSources turns the configured channel names and database ids into sources
func monitoredSources(cfg *config.GlobalConfig) []models.MonitoredSource {
	var out []models.MonitoredSource
	for _, name := range cfg.SlackConfig.Channels {
		if name = sources.NormalizeChannelName(name); name != "" {
			out = append(out, models.NewChannelSource(name))
		}
	}
	for _, id := range cfg.NotionConfig.DatabaseIDs {
		if id != "" {
			out = append(out, models.NewDatabaseSource(id))
		}
	}
	return out
}

func buildApplication(ctx context.Context, cfg *config.GlobalConfig, logger zerolog.Logger) (*application, error) {
	app := &application{logger: logger}
	m := metrics.New()
	maxAttachmentBytes := cfg.ClassifierConfig.MaxAttachmentSizeMB * bytesPerMB

	monitored := monitoredSources(cfg)
	if len(monitored) == 0 {
		logger.Warn().Msg("No channels or databases configured, nothing will be monitored")
	}

	var (
		slackClient *slack.Client
		adapters    []sources.Adapter
	)

	if cfg.SlackConfig.BotToken != "" {
		client, err := slack.NewClient(cfg.SlackConfig, logger, slack.WithDownloadLimit(maxAttachmentBytes))
		if err != nil {
			return nil, err
		}
		botUserID, err := client.AuthTest(ctx)
		if err != nil {
			return nil, common.WrapError(err, "slack auth.test")
		}
		logger.Info().Str("bot_user_id", botUserID).Msg("Slack bot authenticated")
		slackClient = client

		if len(cfg.SlackConfig.Channels) > 0 {
			channels := sources.NewChannelResolver(client, cfg.SlackConfig.ChannelCacheTTL(), m, logger)
			adapters = append(adapters, sources.NewSlackAdapter(client, channels, botUserID, logger))
		}
	}

	if len(cfg.NotionConfig.DatabaseIDs) > 0 {
		notionClient, err := notion.NewClient(cfg.NotionConfig, logger)
		if err != nil {
			return nil, err
		}
		files, err := attachments.NewHTTPFetcher(time.Duration(cfg.NotionConfig.HTTPTimeoutSeconds)*time.Second, maxAttachmentBytes, logger)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, sources.NewNotionAdapter(notionClient, files, cfg.NotionConfig.SynthesizedEmailDomain, logger))
	}

	gateway := classifier.NewGateway(classifier.NewOpenAIClient(cfg.ClassifierConfig), cfg.ClassifierConfig, m, logger)
	extractor := attachments.NewExtractor("", cfg.ClassifierConfig.DocumentCharLimit, m, logger)

	var opts []remediation.Option
	opts = append(opts, remediation.WithMetrics(m))

	var schedOpts []scheduler.Option
	schedOpts = append(schedOpts, scheduler.WithMetrics(m))

	if cfg.StorageConfig.AuditDBPath != "" {
		store, err := datastore.NewAuditStore(cfg.StorageConfig.AuditDBPath, logger)
		if err != nil {
			return nil, err
		}
		app.audit = store
		opts = append(opts, remediation.WithAudit(store))
		schedOpts = append(schedOpts, scheduler.WithPollHistory(store))
	}

	discord, err := notifier.NewDiscordNotifier(cfg.NotificationConfig.DiscordWebhookURL, logger)
	if err != nil {
		app.close()
		return nil, err
	}
	if discord.Enabled() {
		opts = append(opts, remediation.WithOpsNotifier(notifier.NewNotificationHelper(discord, cfg.NotificationConfig, logger)))
	}

	// Without a bot token no source is monitored, so the engine never needs a directory.
	var (
		directory identity.Directory
		messenger remediation.Messenger
	)
	if slackClient != nil {
		directory = slackClient
		messenger = slackClient
	}

	engine := remediation.NewEngine(
		gateway,
		extractor,
		identity.NewResolver(directory, cfg.RemediationConfig.RequireRealEmail, logger),
		messenger,
		cfg.RemediationConfig,
		logger,
		opts...,
	)

	app.scheduler = scheduler.New(cfg.SchedulerConfig, monitored, adapters, engine, logger, schedOpts...)

	if cfg.HealthConfig.Enabled {
		var healthOpts []health.Option
		if app.audit != nil {
			healthOpts = append(healthOpts, health.WithRemediationLog(app.audit))
		}
		app.health = health.NewServer(cfg.HealthConfig, m.Handler(), logger, healthOpts...)
	}
	return app, nil
}

func (a *application) start() error {
	if a.health != nil {
		if err := a.health.Start(); err != nil {
			return common.WrapError(err, "start health server")
		}
	}
	return a.scheduler.Start()
}

func (a *application) shutdown(ctx context.Context) {
	a.scheduler.Stop()
	if a.health != nil {
		if err := a.health.Shutdown(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("Health server shutdown error")
		}
	}
	a.close()
}

func (a *application) close() {
	if a.audit == nil {
		return
	}
	if err := a.audit.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to close audit store")
	}
}
