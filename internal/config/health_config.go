package config

// HealthConfig defines the liveness/metrics HTTP endpoint
type HealthConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" env:"HEALTH_ENABLED"`
	ListenAddr  string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty" validate:"required" env:"HEALTH_ADDR"`
	ServiceName string `json:"service_name,omitempty" yaml:"service_name,omitempty" validate:"required"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty" env:"SERVICE_VERSION"`
}

// NewDefaultHealthConfig creates default health endpoint configuration
func NewDefaultHealthConfig() HealthConfig {
	return HealthConfig{
		Enabled:     true,
		ListenAddr:  DefaultHealthListenAddr,
		ServiceName: DefaultHealthServiceName,
		Version:     DefaultHealthVersion,
	}
}
