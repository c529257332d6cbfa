package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional config
// file. Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults chosen to match the observed production behavior: three
	// retries with a doubling two-second base delay, a 30 second fetch
	// timeout, and a 45 minute dormancy threshold.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.origin", "http://localhost:8080")
	v.SetDefault("agent.store_path", "vigil.db")
	v.SetDefault("agent.version", 1)
	v.SetDefault("cache.offline_page_path", "offline.html")
	v.SetDefault("cache.denylist", []string{"/api/", "/auth/", "/analytics/"})
	v.SetDefault("push.fetch_timeout", "30s")
	v.SetDefault("push.max_retries", 3)
	v.SetDefault("push.retry_delay", "2s")
	v.SetDefault("supervisor.dormancy_threshold", "45m")
	v.SetDefault("supervisor.revalidate_interval", "1h")

	// Optional config file in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env vars and defaults cover everything.
	}

	// Environment variables with the VIGIL_ prefix override everything,
	// e.g. VIGIL_DATABASE_URL maps to database.url.
	v.SetEnvPrefix("VIGIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults are invisible to Unmarshal unless bound
	// explicitly.
	for _, key := range []string{"database.url", "push.provider_url", "push.api_key"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
