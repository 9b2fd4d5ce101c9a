package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, "auction_notifications", cfg.Notifications.Channel)
	assert.Equal(t, "sandbox", cfg.Payment.Mode)
	assert.Equal(t, time.Duration(0), cfg.Payment.Timeout)
	assert.Equal(t, "repeatable_read", cfg.MySQL.IsolationLevel)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SCHEDULER_INTERVAL", "5s")
	t.Setenv("INSTANCE_ID", "auction-service-7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, "auction-service-7", cfg.Instance.ID)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
payment:
  mode: http
  endpoint: https://payments.internal/charges
  timeout: 10s
settlement:
  manager_split: 0.1
  expert_split: 0.02
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http", cfg.Payment.Mode)
	assert.Equal(t, 10*time.Second, cfg.Payment.Timeout)
	assert.InDelta(t, 0.1, cfg.Settlement.ManagerSplit, 1e-9)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			MySQL:      MySQLConfig{IsolationLevel: "serializable"},
			Scheduler:  SchedulerConfig{Interval: time.Second},
			Payment:    PaymentConfig{Mode: "sandbox"},
			Settlement: SettlementConfig{ManagerSplit: 0.05, ExpertSplit: 0.01},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interval", func(c *Config) { c.Scheduler.Interval = 0 }},
		{"http without endpoint", func(c *Config) { c.Payment.Mode = "http" }},
		{"unknown payment mode", func(c *Config) { c.Payment.Mode = "stripe" }},
		{"unknown isolation", func(c *Config) { c.MySQL.IsolationLevel = "chaos" }},
		{"splits above one", func(c *Config) { c.Settlement.ManagerSplit = 0.95 }},
		{"negative split", func(c *Config) { c.Settlement.ExpertSplit = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
