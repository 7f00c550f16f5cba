package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/aleister1102/piiwatch/internal/httpclient"
	"github.com/aleister1102/piiwatch/internal/models"
	"github.com/rs/zerolog"
)

const (
	defaultRetryAttempts = 2
	defaultTimeout       = 20 * time.Second
)

// DiscordNotifier posts message payloads to a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	httpClient *httpclient.HTTPClient
	logger     zerolog.Logger
}

// NewDiscordNotifier creates a notifier for webhookURL. An empty URL yields a disabled notifier.
func NewDiscordNotifier(webhookURL string, logger zerolog.Logger) (*DiscordNotifier, error) {
	moduleLogger := logger.With().Str("component", "DiscordNotifier").Logger()

	if webhookURL != "" {
		if _, err := url.ParseRequestURI(webhookURL); err != nil {
			return nil, common.NewValidationError("discord_webhook_url", webhookURL, "invalid URL")
		}
	}

	client, err := httpclient.NewHTTPClientBuilder(moduleLogger).
		WithTimeout(defaultTimeout).
		WithRetry(httpclient.DefaultRetryHandlerConfig(defaultRetryAttempts)).
		Build()
	if err != nil {
		return nil, common.WrapError(err, "failed to build discord HTTP client")
	}

	return &DiscordNotifier{
		webhookURL: webhookURL,
		httpClient: client,
		logger:     moduleLogger,
	}, nil
}

// Enabled reports whether a webhook is configured
func (dn *DiscordNotifier) Enabled() bool {
	return dn != nil && dn.webhookURL != ""
}

// SendNotification posts payload to the webhook. It is a no-op when the notifier is disabled.
func (dn *DiscordNotifier) SendNotification(ctx context.Context, payload models.DiscordMessagePayload) error {
	if !dn.Enabled() {
		return nil
	}

	resp, err := dn.httpClient.DoJSON(ctx, http.MethodPost, dn.webhookURL, nil, payload)
	if err != nil {
		dn.logger.Error().Err(err).Msg("Discord notification failed")
		return fmt.Errorf("discord notification failed: %w", err)
	}

	dn.logger.Debug().Int("status_code", resp.StatusCode).Msg("Discord notification sent")
	return nil
}
