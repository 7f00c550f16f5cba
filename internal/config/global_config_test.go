package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the loader reads so ambient values cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"ENV_FILE", ConfigPathEnv,
		"SLACK_CHANNELS", "SLACK_BOT_TOKEN", "NOTION_DATABASE_IDS", "NOTION_API_KEY",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "POLL_INTERVAL_MS", "LOG_LEVEL", "LOG_FORMAT",
		"LOG_FILE", "HEALTH_ADDR", "OPS_DISCORD_WEBHOOK_URL", "AUDIT_DB_PATH",
		"REMEDIATION_REQUIRE_REAL_EMAIL",
	} {
		t.Setenv(name, "")
	}
}

func TestNewDefaultGlobalConfig(t *testing.T) {
	cfg := NewDefaultGlobalConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, DefaultPollIntervalMs, cfg.SchedulerConfig.IntervalMs)
	assert.Equal(t, DefaultInitialLookbackSeconds, cfg.SchedulerConfig.InitialLookbackSeconds)
	assert.Equal(t, DefaultClassifierTimeoutSeconds, cfg.ClassifierConfig.TimeoutSeconds)
	assert.Equal(t, DefaultClassifierDocumentChars, cfg.ClassifierConfig.DocumentCharLimit)
	assert.Equal(t, DefaultSlackChannelCacheTTLSecs, cfg.SlackConfig.ChannelCacheTTLSeconds)
	assert.Equal(t, DefaultNotionSynthesizedDomain, cfg.NotionConfig.SynthesizedEmailDomain)
	assert.Equal(t, DefaultNotionPageSize, cfg.NotionConfig.PageSize)
	assert.Equal(t, DefaultRemediationMaxQuotedChars, cfg.RemediationConfig.MaxQuotedChars)
	assert.Empty(t, cfg.SlackConfig.Channels)
	assert.Empty(t, cfg.NotionConfig.DatabaseIDs)
	assert.False(t, cfg.RemediationConfig.RequireRealEmail)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoadGlobalConfig_NoConfigFile(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadGlobalConfig("")

	require.NoError(t, err)
	assert.Equal(t, DefaultPollIntervalMs, cfg.SchedulerConfig.IntervalMs)
	assert.Empty(t, cfg.SlackConfig.Channels)
}

func TestLoadGlobalConfig_NonExistentFile(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadGlobalConfig("/nonexistent/config.json")

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestLoadGlobalConfig_Files(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		content  string
	}{
		{
			name:     "json",
			fileName: "config.json",
			content: `{
				"log_config": {"log_level": "debug"},
				"scheduler_config": {"interval_ms": 2500},
				"slack_config": {"channels": ["#general", "support"]}
			}`,
		},
		{
			name:     "yaml",
			fileName: "config.yaml",
			content: `
log_config:
  log_level: debug
scheduler_config:
  interval_ms: 2500
slack_config:
  channels:
    - "#general"
    - support
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			configFile := filepath.Join(t.TempDir(), tt.fileName)
			require.NoError(t, os.WriteFile(configFile, []byte(tt.content), 0o644))

			cfg, err := LoadGlobalConfig(configFile)

			require.NoError(t, err)
			assert.Equal(t, "debug", cfg.LogConfig.LogLevel)
			assert.Equal(t, 2500, cfg.SchedulerConfig.IntervalMs)
			assert.Equal(t, []string{"#general", "support"}, cfg.SlackConfig.Channels)
			// untouched sections keep their defaults
			assert.Equal(t, DefaultNotionAPIVersion, cfg.NotionConfig.APIVersion)
		})
	}
}

func TestLoadGlobalConfig_InvalidJSON(t *testing.T) {
	clearEnv(t)
	configFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configFile, []byte(`{"scheduler_config": `), 0o644))

	_, err := LoadGlobalConfig(configFile)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config content")
}

func TestLoadGlobalConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SLACK_CHANNELS", "general, #alerts,,")
	t.Setenv("NOTION_DATABASE_IDS", "db-1,db-2")
	t.Setenv("POLL_INTERVAL_MS", "5000")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("NOTION_API_KEY", "secret_test")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REMEDIATION_REQUIRE_REAL_EMAIL", "true")
	t.Setenv("AUDIT_DB_PATH", "/tmp/audit.db")

	cfg, err := LoadGlobalConfig("")

	require.NoError(t, err)
	assert.Equal(t, []string{"general", "#alerts"}, cfg.SlackConfig.Channels)
	assert.Equal(t, []string{"db-1", "db-2"}, cfg.NotionConfig.DatabaseIDs)
	assert.Equal(t, 5000, cfg.SchedulerConfig.IntervalMs)
	assert.Equal(t, "xoxb-test", cfg.SlackConfig.BotToken)
	assert.Equal(t, "secret_test", cfg.NotionConfig.APIKey)
	assert.Equal(t, "sk-test", cfg.ClassifierConfig.APIKey)
	assert.True(t, cfg.RemediationConfig.RequireRealEmail)
	assert.Equal(t, "/tmp/audit.db", cfg.StorageConfig.AuditDBPath)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoadGlobalConfig_EnvBeatsFile(t *testing.T) {
	clearEnv(t)
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("scheduler_config:\n  interval_ms: 2500\n"), 0o644))
	t.Setenv("POLL_INTERVAL_MS", "750")

	cfg, err := LoadGlobalConfig(configFile)

	require.NoError(t, err)
	assert.Equal(t, 750, cfg.SchedulerConfig.IntervalMs)
}

func TestLoadGlobalConfig_MalformedInterval(t *testing.T) {
	for _, value := range []string{"abc", "1.5", "10ms"} {
		t.Run(value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("POLL_INTERVAL_MS", value)

			cfg, err := LoadGlobalConfig("")

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, errors.Is(err, common.ErrInvalidConfiguration))
			assert.Contains(t, err.Error(), "POLL_INTERVAL_MS")
		})
	}
}

func TestLoadGlobalConfig_EnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("SLACK_CHANNELS=from-file\n"), 0o644))
	t.Setenv("ENV_FILE", envFile)
	// godotenv never overrides variables that are already set, so unset the blank one
	require.NoError(t, os.Unsetenv("SLACK_CHANNELS"))

	cfg, err := LoadGlobalConfig("")

	require.NoError(t, err)
	assert.Equal(t, []string{"from-file"}, cfg.SlackConfig.Channels)
	require.NoError(t, os.Unsetenv("SLACK_CHANNELS"))
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(cfg *GlobalConfig)
		errContains string
	}{
		{
			name:   "defaults monitor nothing and are valid",
			mutate: func(cfg *GlobalConfig) {},
		},
		{
			name:        "invalid log level",
			mutate:      func(cfg *GlobalConfig) { cfg.LogConfig.LogLevel = "verbose" },
			errContains: "rule 'loglevel'",
		},
		{
			name:        "invalid log format",
			mutate:      func(cfg *GlobalConfig) { cfg.LogConfig.LogFormat = "xml" },
			errContains: "rule 'logformat'",
		},
		{
			name:        "non-positive interval",
			mutate:      func(cfg *GlobalConfig) { cfg.SchedulerConfig.IntervalMs = 0 },
			errContains: "SchedulerConfig.IntervalMs",
		},
		{
			name:        "bad webhook url",
			mutate:      func(cfg *GlobalConfig) { cfg.NotificationConfig.DiscordWebhookURL = "not a url" },
			errContains: "rule 'url'",
		},
		{
			name: "channels without token",
			mutate: func(cfg *GlobalConfig) {
				cfg.SlackConfig.Channels = []string{"general"}
				cfg.ClassifierConfig.APIKey = "sk"
			},
			errContains: "SLACK_BOT_TOKEN is required when channels are configured",
		},
		{
			name: "databases need slack token for notifications",
			mutate: func(cfg *GlobalConfig) {
				cfg.NotionConfig.DatabaseIDs = []string{"db"}
				cfg.NotionConfig.APIKey = "secret"
				cfg.ClassifierConfig.APIKey = "sk"
			},
			errContains: "SLACK_BOT_TOKEN is required to notify record authors",
		},
		{
			name: "sources without classifier key",
			mutate: func(cfg *GlobalConfig) {
				cfg.SlackConfig.Channels = []string{"general"}
				cfg.SlackConfig.BotToken = "xoxb"
			},
			errContains: "OPENAI_API_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultGlobalConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}
