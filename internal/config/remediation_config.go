package config

// RemediationConfig controls how flagged content is handled
type RemediationConfig struct {
	// RequireRealEmail refuses to act on record authors whose address had to be synthesized.
	RequireRealEmail bool `json:"require_real_email" yaml:"require_real_email" env:"REMEDIATION_REQUIRE_REAL_EMAIL"`
	MaxQuotedChars   int  `json:"max_quoted_chars,omitempty" yaml:"max_quoted_chars,omitempty" validate:"min=1"`
}

// NewDefaultRemediationConfig creates default remediation configuration
func NewDefaultRemediationConfig() RemediationConfig {
	return RemediationConfig{
		RequireRealEmail: false,
		MaxQuotedChars:   DefaultRemediationMaxQuotedChars,
	}
}
