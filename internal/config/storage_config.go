package config

// StorageConfig defines where the remediation audit log lives. An empty path disables it.
type StorageConfig struct {
	AuditDBPath string `json:"audit_db_path,omitempty" yaml:"audit_db_path,omitempty" env:"AUDIT_DB_PATH"`
}

// NewDefaultStorageConfig creates default storage configuration
func NewDefaultStorageConfig() StorageConfig {
	return StorageConfig{}
}
