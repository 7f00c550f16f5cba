package config

import "time"

// ClassifierConfig defines the PII classification service settings
type ClassifierConfig struct {
	APIKey              string `json:"api_key,omitempty" yaml:"api_key,omitempty" env:"OPENAI_API_KEY"`
	BaseURL             string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"required,url" env:"OPENAI_BASE_URL"`
	Model               string `json:"model,omitempty" yaml:"model,omitempty" validate:"required" env:"CLASSIFIER_MODEL"`
	VisionModel         string `json:"vision_model,omitempty" yaml:"vision_model,omitempty" validate:"required" env:"CLASSIFIER_VISION_MODEL"`
	TimeoutSeconds      int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"min=1"`
	DocumentCharLimit   int    `json:"document_char_limit,omitempty" yaml:"document_char_limit,omitempty" validate:"min=1"`
	MaxAttachmentSizeMB int    `json:"max_attachment_size_mb,omitempty" yaml:"max_attachment_size_mb,omitempty" validate:"min=1"`
}

// NewDefaultClassifierConfig creates default classifier configuration
func NewDefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		BaseURL:             DefaultClassifierBaseURL,
		Model:               DefaultClassifierModel,
		VisionModel:         DefaultClassifierVisionModel,
		TimeoutSeconds:      DefaultClassifierTimeoutSeconds,
		DocumentCharLimit:   DefaultClassifierDocumentChars,
		MaxAttachmentSizeMB: DefaultMaxAttachmentSizeMB,
	}
}

// Timeout returns the per-call classification deadline.
func (c ClassifierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
