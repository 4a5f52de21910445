package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerlink/easysync/internal/config"
)

// 32 zero bytes, base64.
const testMasterKey = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="

func validConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Vault.MasterKey = testMasterKey
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, 3, cfg.API.MaxRetries)
	assert.Equal(t, time.Second, cfg.API.RetryDelay)
	assert.Equal(t, 45*time.Minute, cfg.Tokens.TTL)
	assert.Equal(t, 15*time.Minute, cfg.Sync.RunLease)
	assert.Equal(t, "local", cfg.Images.Backend)
	assert.Equal(t, "info", cfg.Log.Level)

	// Defaults alone never validate; the vault key is deliberately
	// absent so a deployment must supply one.
	assert.Error(t, cfg.Validate())
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "missing base urls",
			mutate:  func(c *config.Config) { c.API.TestBaseURL = "" },
			wantErr: "base URLs",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *config.Config) { c.API.Timeout = 0 },
			wantErr: "api.timeout",
		},
		{
			name:    "negative retries",
			mutate:  func(c *config.Config) { c.API.MaxRetries = -1 },
			wantErr: "api.max_retries",
		},
		{
			name:    "zero token ttl",
			mutate:  func(c *config.Config) { c.Tokens.TTL = 0 },
			wantErr: "tokens.ttl",
		},
		{
			name:    "zero run lease",
			mutate:  func(c *config.Config) { c.Sync.RunLease = 0 },
			wantErr: "sync.run_lease",
		},
		{
			name:    "missing store path",
			mutate:  func(c *config.Config) { c.Store.Path = "" },
			wantErr: "store.path",
		},
		{
			name: "s3 backend without bucket",
			mutate: func(c *config.Config) {
				c.Images.Backend = "s3"
				c.Images.Bucket = ""
			},
			wantErr: "images.bucket",
		},
		{
			name:    "unknown images backend",
			mutate:  func(c *config.Config) { c.Images.Backend = "ftp" },
			wantErr: "images.backend",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *config.Config) { c.Log.Level = "verbose" },
			wantErr: "log level",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *config.Config) { c.Log.Format = "xml" },
			wantErr: "log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_PassphraseInsteadOfKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Vault.Passphrase = "correct horse battery"
	cfg.Vault.Salt = "0123456789abcdef"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "easysync.yaml")
	content := `
api:
  test_base_url: https://test.example.com
  production_base_url: https://prod.example.com
  timeout: 10s
  max_retries: 5
vault:
  master_key: "` + testMasterKey + `"
sync:
  run_lease: 5m
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://test.example.com", cfg.API.TestBaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 5, cfg.API.MaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.Sync.RunLease)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, time.Second, cfg.API.RetryDelay)
	assert.Equal(t, "easysync.db", cfg.Store.Path)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("EASYSYNC_VAULT_MASTER_KEY", testMasterKey)
	t.Setenv("EASYSYNC_LOG_LEVEL", "warn")
	t.Setenv("EASYSYNC_STORE_PATH", "/tmp/easysync-test.db")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, testMasterKey, cfg.Vault.MasterKey)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/tmp/easysync-test.db", cfg.Store.Path)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "easysync.yaml")
	content := `
vault:
  master_key: "` + testMasterKey + `"
log:
  level: extremely-loud
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
