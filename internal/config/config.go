package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	API    APIConfig    `mapstructure:"api"`
	Vault  VaultConfig  `mapstructure:"vault"`
	Tokens TokenConfig  `mapstructure:"tokens"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Store  StoreConfig  `mapstructure:"store"`
	Images ImagesConfig `mapstructure:"images"`
	Log    LogConfig    `mapstructure:"log"`
}

// APIConfig for EasyCars communication.
type APIConfig struct {
	TestBaseURL       string        `mapstructure:"test_base_url"`
	ProductionBaseURL string        `mapstructure:"production_base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// VaultConfig supplies the credential vault master key. Either a
// base64-encoded 32-byte key, or a passphrase plus salt to derive one.
type VaultConfig struct {
	MasterKey  string `mapstructure:"master_key"`
	Passphrase string `mapstructure:"passphrase"`
	Salt       string `mapstructure:"salt"`
}

// TokenConfig for the bearer-token cache.
type TokenConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// SyncConfig for synchronization behavior.
type SyncConfig struct {
	// RunLease bounds how long a sync may be considered in progress
	// before an overlapping run is allowed to steal the slot.
	RunLease time.Duration `mapstructure:"run_lease"`
}

// StoreConfig for the local database.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ImagesConfig selects where downloaded vehicle images are stored.
type ImagesConfig struct {
	Backend string        `mapstructure:"backend"` // local, s3
	Dir     string        `mapstructure:"dir"`
	Bucket  string        `mapstructure:"bucket"`
	Prefix  string        `mapstructure:"prefix"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
	File   string `mapstructure:"file"`   // empty = stdout
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			TestBaseURL:       "https://api-test.easycars.example.com",
			ProductionBaseURL: "https://api.easycars.example.com",
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			RetryDelay:        time.Second,
			UserAgent:         "easysync/1.0",
		},
		Tokens: TokenConfig{
			TTL: 45 * time.Minute,
		},
		Sync: SyncConfig{
			RunLease: 15 * time.Minute,
		},
		Store: StoreConfig{
			Path: "easysync.db",
		},
		Images: ImagesConfig{
			Backend: "local",
			Dir:     "images",
			Timeout: 20 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.API.TestBaseURL == "" || c.API.ProductionBaseURL == "" {
		return errors.New("api base URLs are required")
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must not be negative")
	}
	if c.API.RetryDelay <= 0 {
		return errors.New("api.retry_delay must be positive")
	}
	if c.Vault.MasterKey == "" && c.Vault.Passphrase == "" {
		return errors.New("vault.master_key or vault.passphrase is required")
	}
	if c.Tokens.TTL <= 0 {
		return errors.New("tokens.ttl must be positive")
	}
	if c.Sync.RunLease <= 0 {
		return errors.New("sync.run_lease must be positive")
	}
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}

	switch c.Images.Backend {
	case "local":
		if c.Images.Dir == "" {
			return errors.New("images.dir is required for the local backend")
		}
	case "s3":
		if c.Images.Bucket == "" {
			return errors.New("images.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("invalid images.backend: %s", c.Images.Backend)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}
