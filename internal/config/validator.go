package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/go-playground/validator/v10"
)

// ValidateConfig performs validation on the GlobalConfig structure.
func ValidateConfig(cfg *GlobalConfig) error {
	validate := validator.New()

	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "debug", "info", "warn", "error", "fatal", "panic":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("logformat", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "console", "text", "json":
			return true
		default:
			return false
		}
	})

	if err := validate.Struct(cfg); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			var validationErrorMessages []string
			for _, e := range errs {
				fieldName := strings.TrimPrefix(e.StructNamespace(), "GlobalConfig.")
				msg := fmt.Sprintf("Validation failed for '%s': rule '%s'", fieldName, e.Tag())
				if e.Param() != "" {
					msg += fmt.Sprintf(" (expected: %s)", e.Param())
				}
				if e.Value() != nil && e.Value() != "" {
					msg += fmt.Sprintf(", actual: '%v'", e.Value())
				}
				validationErrorMessages = append(validationErrorMessages, msg)
			}
			return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(validationErrorMessages, "\n  "))
		}
		return fmt.Errorf("configuration validation error: %w", err)
	}

	return validateCredentials(cfg)
}

// validateCredentials requires API credentials only for the sources that are actually monitored.
// Empty source lists are valid and mean nothing is watched.
func validateCredentials(cfg *GlobalConfig) error {
	var ec common.ErrorCollector

	slackEnabled := len(cfg.SlackConfig.Channels) > 0
	notionEnabled := len(cfg.NotionConfig.DatabaseIDs) > 0

	if slackEnabled && cfg.SlackConfig.BotToken == "" {
		ec.Add(common.NewConfigurationError("slack_config", "bot_token", "SLACK_BOT_TOKEN is required when channels are configured"))
	}
	if notionEnabled && cfg.NotionConfig.APIKey == "" {
		ec.Add(common.NewConfigurationError("notion_config", "api_key", "NOTION_API_KEY is required when databases are configured"))
	}
	// Notion authors are notified over Slack DMs.
	if notionEnabled && !slackEnabled && cfg.SlackConfig.BotToken == "" {
		ec.Add(common.NewConfigurationError("slack_config", "bot_token", "SLACK_BOT_TOKEN is required to notify record authors"))
	}
	if (slackEnabled || notionEnabled) && cfg.ClassifierConfig.APIKey == "" {
		ec.Add(common.NewConfigurationError("classifier_config", "api_key", "OPENAI_API_KEY is required when any source is monitored"))
	}

	return ec.Error()
}
