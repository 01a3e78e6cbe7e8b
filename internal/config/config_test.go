package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":3900", cfg.Listen)
	assert.Equal(t, "/data/homepulse.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 15*time.Minute, cfg.Analysis.Interval.Duration)
	assert.Equal(t, 24, cfg.Analysis.LookbackHours)
	assert.Equal(t, 30, cfg.Analysis.TrendDays)
	assert.Equal(t, 0.15, cfg.Pricing.PricePerKWh)
	assert.Nil(t, cfg.SMART)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
listen: ":8080"
db_path: /tmp/pulse.db
log_level: debug
log_format: json
analysis:
  interval: 5m
  lookback_hours: 12
  trend_days: 14
  cooldown: 2h
smart:
  host: nas.lan
  user: root
  key_path: /etc/homepulse/id_ed25519
  devices:
    - /dev/sda
    - /dev/sdb
  poll_interval: 30m
notifications:
  - type: ntfy
    url: https://ntfy.sh
    topic: homepulse
  - type: webhook
    url: https://hooks.example.com/x
    method: PUT
    headers:
      Authorization: Bearer tok
pricing:
  price_per_kwh: 0.32
  base_watts: 60
  watts_per_tb: 6
  watts_per_container: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "/tmp/pulse.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.Analysis.Interval.Duration)
	assert.Equal(t, 12, cfg.Analysis.LookbackHours)
	assert.Equal(t, 2*time.Hour, cfg.Analysis.Cooldown.Duration)

	require.NotNil(t, cfg.SMART)
	assert.Equal(t, "nas.lan", cfg.SMART.Host)
	assert.Equal(t, []string{"/dev/sda", "/dev/sdb"}, cfg.SMART.Devices)
	assert.Equal(t, 30*time.Minute, cfg.SMART.PollInterval.Duration)

	require.Len(t, cfg.Notifications, 2)
	assert.Equal(t, "ntfy", cfg.Notifications[0].Type)
	assert.Equal(t, "PUT", cfg.Notifications[1].Method)
	assert.Equal(t, "Bearer tok", cfg.Notifications[1].Headers["Authorization"])

	assert.Equal(t, 0.32, cfg.Pricing.PricePerKWh)
	assert.Equal(t, 60.0, cfg.Pricing.BaseWatts)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_NTFY_TOPIC", "secret-topic")
	path := writeConfig(t, `
notifications:
  - type: ntfy
    url: https://ntfy.sh
    topic: ${TEST_NTFY_TOPIC}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Notifications, 1)
	assert.Equal(t, "secret-topic", cfg.Notifications[0].Topic)
}

func TestLoad_EnvExpansion_UnsetFailsValidation(t *testing.T) {
	path := writeConfig(t, `
notifications:
  - type: ntfy
    url: https://ntfy.sh
    topic: ${DEFINITELY_UNSET_VAR_42}
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic is required")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOMEPULSE_LISTEN", ":9999")
	t.Setenv("HOMEPULSE_DB_PATH", "/tmp/override.db")
	t.Setenv("HOMEPULSE_LOG_LEVEL", "warn")
	t.Setenv("HOMEPULSE_NTFY_URL", "https://ntfy.example.com")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Listen)
	assert.Equal(t, "/tmp/override.db", cfg.DBPath)
	assert.Equal(t, "warn", cfg.LogLevel)
	require.Len(t, cfg.Notifications, 1)
	assert.Equal(t, "homepulse-alerts", cfg.Notifications[0].Topic)
}

func TestValidate_BadLogLevel(t *testing.T) {
	path := writeConfig(t, "log_level: verbose\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestValidate_BadDuration(t *testing.T) {
	path := writeConfig(t, `
analysis:
  interval: soon
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestValidate_SMARTMissingDevices(t *testing.T) {
	path := writeConfig(t, `
smart:
  host: nas.lan
  user: root
  key_path: /etc/key
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one device")
}

func TestValidate_UnknownNotificationType(t *testing.T) {
	path := writeConfig(t, `
notifications:
  - type: pigeon
    url: https://coop.example.com
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestValidate_ZeroPrice(t *testing.T) {
	path := writeConfig(t, `
pricing:
  price_per_kwh: 0
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price_per_kwh")
}
