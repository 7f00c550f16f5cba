package config

import "time"

// SlackConfig defines the monitored channels and the messaging API client settings
type SlackConfig struct {
	BotToken               string   `json:"bot_token,omitempty" yaml:"bot_token,omitempty" env:"SLACK_BOT_TOKEN"`
	Channels               []string `json:"channels,omitempty" yaml:"channels,omitempty" env:"SLACK_CHANNELS"`
	APIBaseURL             string   `json:"api_base_url,omitempty" yaml:"api_base_url,omitempty" validate:"required,url" env:"SLACK_API_BASE_URL"`
	RequestsPerSecond      int      `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty" validate:"min=1"`
	ChannelCacheTTLSeconds int      `json:"channel_cache_ttl_seconds,omitempty" yaml:"channel_cache_ttl_seconds,omitempty" validate:"min=0"`
	HTTPTimeoutSeconds     int      `json:"http_timeout_seconds,omitempty" yaml:"http_timeout_seconds,omitempty" validate:"min=1"`
	MaxRetries             int      `json:"max_retries,omitempty" yaml:"max_retries,omitempty" validate:"min=0"`
	HistoryPageSize        int      `json:"history_page_size,omitempty" yaml:"history_page_size,omitempty" validate:"min=1,max=999"`
}

// NewDefaultSlackConfig creates default Slack configuration
func NewDefaultSlackConfig() SlackConfig {
	return SlackConfig{
		Channels:               []string{},
		APIBaseURL:             DefaultSlackAPIBaseURL,
		RequestsPerSecond:      DefaultSlackRequestsPerSecond,
		ChannelCacheTTLSeconds: DefaultSlackChannelCacheTTLSecs,
		HTTPTimeoutSeconds:     DefaultSlackHTTPTimeoutSeconds,
		MaxRetries:             DefaultSlackMaxRetries,
		HistoryPageSize:        DefaultSlackHistoryPageSize,
	}
}

// ChannelCacheTTL returns how long resolved channel ids are reused.
func (c SlackConfig) ChannelCacheTTL() time.Duration {
	return time.Duration(c.ChannelCacheTTLSeconds) * time.Second
}
