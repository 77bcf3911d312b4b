package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DRUMLEDGER_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Store.Backend)
	assert.Equal(t, "bulk_drums.csv", cfg.Store.LedgerName)
	assert.Equal(t, "bulk_move_log.csv", cfg.Store.LogName)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 30*time.Second, cfg.API.ReadTimeout)
	assert.Equal(t, "unassigned", cfg.Inventory.DefaultLocation)
	assert.Equal(t, []string{"2F", "4F", "5F", "6F"}, cfg.Inventory.Floors)
	assert.NotEmpty(t, cfg.Inventory.Zones)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
store:
  backend: memory
api:
  port: 9090
inventory:
  floors: [1F, 3F]
  zones: [A1, A2]
  lock_ttl: 5s
logging:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("DRUMLEDGER_API_PORT", "7070")
	t.Setenv("DRUMLEDGER_INVENTORY_ZONES", "B1,B2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 7070, cfg.API.Port)
	assert.Equal(t, []string{"1F", "3F"}, cfg.Inventory.Floors)
	assert.Equal(t, []string{"B1", "B2"}, cfg.Inventory.Zones)
	assert.Equal(t, 5*time.Second, cfg.Inventory.LockTTL)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Store: StoreConfig{Backend: "local", Dir: "./data", LedgerName: "a.csv", LogName: "b.csv"},
		API:   APIConfig{Port: 8080},
		Inventory: InventoryConfig{
			DefaultLocation: "unassigned",
			Floors:          []string{"2F"},
			Zones:           []string{"A1"},
			LockTTL:         time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown backend", func(c *Config) { c.Store.Backend = "ftp" }, true},
		{"gcs without bucket", func(c *Config) { c.Store.Backend = "gcs" }, true},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = "postgres" }, true},
		{"same file names", func(c *Config) { c.Store.LogName = "a.csv" }, true},
		{"bad port", func(c *Config) { c.API.Port = 70000 }, true},
		{"no zones", func(c *Config) { c.Inventory.Zones = nil }, true},
		{"zero lock ttl", func(c *Config) { c.Inventory.LockTTL = 0 }, true},
		{"redis without addr", func(c *Config) { c.Redis.Enabled = true }, true},
		{"pubsub without project", func(c *Config) { c.PubSub.Enabled = true; c.PubSub.Topic = "t" }, true},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, true},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestManagerConfig(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("facial_codes: [F-1]\n"), 0o600))

	c := validConfig()
	c.Inventory.RulesFile = rules
	c.Store.BackupPrefix = "bk/drums"

	mc, err := c.ManagerConfig()
	require.NoError(t, err)
	assert.Equal(t, "a.csv", mc.LedgerName)
	assert.Equal(t, "bk/drums", mc.BackupPrefix)
	assert.Equal(t, []string{"2F"}, mc.Scheme.Floors)
	assert.Equal(t, "facial", mc.Rules.ClassifyProductLine("F-1"))

	c.Inventory.RulesFile = filepath.Join(dir, "missing.yaml")
	_, err = c.ManagerConfig()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Level: "debug", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = NewLogger(LoggingConfig{Level: "loud", Format: "json"})
	assert.ErrorIs(t, err, ErrInvalidLogging)

	_, err = NewLogger(LoggingConfig{Level: "info", Format: "xml"})
	assert.ErrorIs(t, err, ErrInvalidLogging)
}
