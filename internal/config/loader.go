package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from an optional file plus EASYSYNC_*
// environment overrides. An empty path searches the default locations.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("api.test_base_url", defaults.API.TestBaseURL)
	v.SetDefault("api.production_base_url", defaults.API.ProductionBaseURL)
	v.SetDefault("api.timeout", defaults.API.Timeout)
	v.SetDefault("api.max_retries", defaults.API.MaxRetries)
	v.SetDefault("api.retry_delay", defaults.API.RetryDelay)
	v.SetDefault("api.user_agent", defaults.API.UserAgent)
	v.SetDefault("tokens.ttl", defaults.Tokens.TTL)
	v.SetDefault("sync.run_lease", defaults.Sync.RunLease)
	v.SetDefault("store.path", defaults.Store.Path)
	v.SetDefault("images.backend", defaults.Images.Backend)
	v.SetDefault("images.dir", defaults.Images.Dir)
	v.SetDefault("images.bucket", "")
	v.SetDefault("images.prefix", "")
	v.SetDefault("images.timeout", defaults.Images.Timeout)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("log.file", "")
	// Empty defaults keep env-only keys visible to Unmarshal.
	v.SetDefault("vault.master_key", "")
	v.SetDefault("vault.passphrase", "")
	v.SetDefault("vault.salt", "")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("easysync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/easysync")
	}

	v.SetEnvPrefix("EASYSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing file is fine when no explicit path was given;
		// env and defaults still apply.
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
