package config

// NotificationConfig defines the operator-facing Discord alerts
type NotificationConfig struct {
	DiscordWebhookURL   string   `json:"discord_webhook_url,omitempty" yaml:"discord_webhook_url,omitempty" validate:"omitempty,url" env:"OPS_DISCORD_WEBHOOK_URL"`
	MentionRoleIDs      []string `json:"mention_role_ids,omitempty" yaml:"mention_role_ids,omitempty"`
	NotifyOnRemediation bool     `json:"notify_on_remediation" yaml:"notify_on_remediation"`
	NotifyOnFailure     bool     `json:"notify_on_failure" yaml:"notify_on_failure"`
}

// NewDefaultNotificationConfig creates default notification configuration
func NewDefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		MentionRoleIDs:      []string{},
		NotifyOnRemediation: true,
		NotifyOnFailure:     true,
	}
}
