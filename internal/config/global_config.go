package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/aleister1102/piiwatch/internal/common"
	"gopkg.in/yaml.v3"
)

// maxConfigFileSize bounds how much of a config file is read
const maxConfigFileSize = 10 * 1024 * 1024

// GlobalConfig contains all configuration sections for the application
type GlobalConfig struct {
	LogConfig          LogConfig          `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	SchedulerConfig    SchedulerConfig    `json:"scheduler_config,omitempty" yaml:"scheduler_config,omitempty"`
	SlackConfig        SlackConfig        `json:"slack_config,omitempty" yaml:"slack_config,omitempty"`
	NotionConfig       NotionConfig       `json:"notion_config,omitempty" yaml:"notion_config,omitempty"`
	ClassifierConfig   ClassifierConfig   `json:"classifier_config,omitempty" yaml:"classifier_config,omitempty"`
	RemediationConfig  RemediationConfig  `json:"remediation_config,omitempty" yaml:"remediation_config,omitempty"`
	NotificationConfig NotificationConfig `json:"notification_config,omitempty" yaml:"notification_config,omitempty"`
	StorageConfig      StorageConfig      `json:"storage_config,omitempty" yaml:"storage_config,omitempty"`
	HealthConfig       HealthConfig       `json:"health_config,omitempty" yaml:"health_config,omitempty"`
}

// NewDefaultGlobalConfig creates a new GlobalConfig with default values
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		LogConfig:          NewDefaultLogConfig(),
		SchedulerConfig:    NewDefaultSchedulerConfig(),
		SlackConfig:        NewDefaultSlackConfig(),
		NotionConfig:       NewDefaultNotionConfig(),
		ClassifierConfig:   NewDefaultClassifierConfig(),
		RemediationConfig:  NewDefaultRemediationConfig(),
		NotificationConfig: NewDefaultNotificationConfig(),
		StorageConfig:      NewDefaultStorageConfig(),
		HealthConfig:       NewDefaultHealthConfig(),
	}
}

// LoadGlobalConfig builds the configuration from defaults, an optional config file and the
// environment, in that order of precedence (environment wins).
// The config file path is resolved with GetConfigPath; YAML is used for .yaml/.yml files and
// JSON otherwise. .env files are loaded before environment overrides are applied.
func LoadGlobalConfig(providedPath string) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	if providedPath != "" && !fileExists(providedPath) {
		return nil, common.NewValidationError("config_file", providedPath, "config file does not exist")
	}

	if filePath := GetConfigPath(providedPath); filePath != "" {
		data, err := loadConfigFileContent(filePath)
		if err != nil {
			return nil, common.WrapError(err, "failed to load config file content")
		}
		if err := parseConfigContent(data, filePath, cfg); err != nil {
			return nil, common.WrapError(err, "failed to parse config content")
		}
	}

	if err := loadEnvFiles(); err != nil {
		return nil, common.WrapError(err, "failed to load env files")
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadConfigFileContent reads the config file, refusing oversized files
func loadConfigFileContent(filePath string) ([]byte, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxConfigFileSize {
		return nil, common.NewValidationError("config_file", filePath, "config file is too large")
	}
	return os.ReadFile(filePath)
}

// parseConfigContent parses the config content based on file extension
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	if isYAMLFile(filepath.Ext(filePath)) {
		return parseYAMLConfig(data, filePath, cfg)
	}
	return parseJSONConfig(data, filePath, cfg)
}

// isYAMLFile checks if the file extension indicates a YAML file
func isYAMLFile(ext string) bool {
	return ext == ".yaml" || ext == ".yml"
}

// parseYAMLConfig parses YAML configuration
func parseYAMLConfig(data []byte, filePath string, cfg *GlobalConfig) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal YAML from '%s': %w", filePath, err)
	}
	return nil
}

// parseJSONConfig parses JSON configuration
func parseJSONConfig(data []byte, filePath string, cfg *GlobalConfig) error {
	if err := json.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}
