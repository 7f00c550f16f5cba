package config

// NotionConfig defines the monitored databases and the workspace API client settings
type NotionConfig struct {
	APIKey                 string   `json:"api_key,omitempty" yaml:"api_key,omitempty" env:"NOTION_API_KEY"`
	DatabaseIDs            []string `json:"database_ids,omitempty" yaml:"database_ids,omitempty" env:"NOTION_DATABASE_IDS"`
	APIBaseURL             string   `json:"api_base_url,omitempty" yaml:"api_base_url,omitempty" validate:"required,url" env:"NOTION_API_BASE_URL"`
	APIVersion             string   `json:"api_version,omitempty" yaml:"api_version,omitempty" validate:"required"`
	RequestsPerSecond      int      `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty" validate:"min=1"`
	HTTPTimeoutSeconds     int      `json:"http_timeout_seconds,omitempty" yaml:"http_timeout_seconds,omitempty" validate:"min=1"`
	MaxRetries             int      `json:"max_retries,omitempty" yaml:"max_retries,omitempty" validate:"min=0"`
	PageSize               int      `json:"page_size,omitempty" yaml:"page_size,omitempty" validate:"min=1,max=100"`
	SynthesizedEmailDomain string   `json:"synthesized_email_domain,omitempty" yaml:"synthesized_email_domain,omitempty" validate:"required,hostname" env:"NOTION_SYNTHESIZED_EMAIL_DOMAIN"`
}

// NewDefaultNotionConfig creates default Notion configuration
func NewDefaultNotionConfig() NotionConfig {
	return NotionConfig{
		DatabaseIDs:            []string{},
		APIBaseURL:             DefaultNotionAPIBaseURL,
		APIVersion:             DefaultNotionAPIVersion,
		RequestsPerSecond:      DefaultNotionRequestsPerSecond,
		HTTPTimeoutSeconds:     DefaultNotionHTTPTimeoutSeconds,
		MaxRetries:             DefaultNotionMaxRetries,
		PageSize:               DefaultNotionPageSize,
		SynthesizedEmailDomain: DefaultNotionSynthesizedDomain,
	}
}
