package config

const (
	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3

	// Scheduler Defaults
	DefaultPollIntervalMs         = 1000
	DefaultInitialLookbackSeconds = 3600
	DefaultStopTimeoutSeconds     = 10

	// Slack Defaults
	DefaultSlackAPIBaseURL          = "https://slack.com/api"
	DefaultSlackRequestsPerSecond   = 5
	DefaultSlackChannelCacheTTLSecs = 60
	DefaultSlackHTTPTimeoutSeconds  = 30
	DefaultSlackMaxRetries          = 2
	DefaultSlackHistoryPageSize     = 200
	DefaultSlackDirectoryPageSize   = 200

	// Notion Defaults
	DefaultNotionAPIBaseURL         = "https://api.notion.com/v1"
	DefaultNotionAPIVersion         = "2022-06-28"
	DefaultNotionRequestsPerSecond  = 3
	DefaultNotionHTTPTimeoutSeconds = 30
	DefaultNotionMaxRetries         = 2
	DefaultNotionPageSize           = 100
	DefaultNotionSynthesizedDomain  = "notion.invalid"

	// Classifier Defaults
	DefaultClassifierBaseURL        = "https://api.openai.com/v1"
	DefaultClassifierModel          = "gpt-4o-mini"
	DefaultClassifierVisionModel    = "gpt-4o-mini"
	DefaultClassifierTimeoutSeconds = 30
	DefaultClassifierDocumentChars  = 10000
	DefaultMaxAttachmentSizeMB      = 20

	// Remediation Defaults
	DefaultRemediationMaxQuotedChars = 3000

	// Health Defaults
	DefaultHealthListenAddr  = ":8080"
	DefaultHealthServiceName = "piiwatch"
	DefaultHealthVersion     = "dev"
)
