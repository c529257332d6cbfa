package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Agent      AgentConfig      `mapstructure:"agent"      validate:"required"`
	Cache      CacheConfig      `mapstructure:"cache"      validate:"required"`
	Push       PushConfig       `mapstructure:"push"       validate:"required"`
	Supervisor SupervisorConfig `mapstructure:"supervisor" validate:"required"`
}

// ServerConfig contains the agent's HTTP surface settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// Origin is the application's base URL, used to recognize the
	// application's own windows when routing notification clicks.
	Origin string `mapstructure:"origin" validate:"required,url"`
}

// DatabaseConfig points at the push-token system of record.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AgentConfig contains settings for the agent-local durable store.
type AgentConfig struct {
	// StorePath is the sqlite file holding cache entries and agent metadata.
	StorePath string `mapstructure:"store_path" validate:"required"`

	// Version tags the current deployment. Cache partitions are named
	// <name>-v<version>; on activation, partitions carrying any other
	// version tag are purged.
	Version int `mapstructure:"version" validate:"required,gt=0"`
}

// CacheConfig contains request-caching settings.
type CacheConfig struct {
	// OfflinePagePath is the HTML document served to navigation requests
	// when the network is down and no cached match exists.
	OfflinePagePath string `mapstructure:"offline_page_path" validate:"required"`

	// Denylist holds URL path prefixes that must never be cached
	// (data-store API calls, authentication endpoints, analytics beacons).
	Denylist []string `mapstructure:"denylist"`
}

// PushConfig contains push-provider settings for token registration and
// message delivery.
type PushConfig struct {
	ProviderURL  string        `mapstructure:"provider_url"  validate:"required,url"`
	APIKey       string        `mapstructure:"api_key"       validate:"required"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" validate:"required"`
	MaxRetries   int           `mapstructure:"max_retries"   validate:"gte=0"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"   validate:"required"`
}

// SupervisorConfig contains liveness and self-healing settings.
type SupervisorConfig struct {
	// DormancyThreshold is how long the agent may be idle before the next
	// activation is treated as a recovery event.
	DormancyThreshold time.Duration `mapstructure:"dormancy_threshold" validate:"required"`

	// RevalidateInterval is how often the supervisor re-checks that push
	// messaging is still initialized.
	RevalidateInterval time.Duration `mapstructure:"revalidate_interval" validate:"required"`
}
