package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/botlink/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "botlink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "table", cfg.OutputFormat)
	assert.Equal(t, 25*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 4500*time.Millisecond, cfg.WatchdogTimeout)
	assert.Equal(t, 10*time.Second, cfg.ScanTimeout)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, time.Second, cfg.WriteTimeout)
	assert.False(t, cfg.WriteWithoutResponse)
	assert.Equal(t, 64, cfg.TelemetryBuffer)
	assert.NoError(t, cfg.Validate())
}

func TestSessionOptionsMatchSessionDefaults(t *testing.T) {
	assert.Equal(t, session.DefaultOptions(), DefaultConfig().SessionOptions())
}

func TestLoad(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `
log_level: debug
output_format: json
poll_interval: 50ms
watchdog_timeout: 2s
write_without_response: true
`))
		require.NoError(t, err)
		assert.Equal(t, logrus.DebugLevel, cfg.Level())
		assert.Equal(t, "json", cfg.OutputFormat)
		assert.Equal(t, 50*time.Millisecond, cfg.PollInterval)
		assert.Equal(t, 2*time.Second, cfg.WatchdogTimeout)
		assert.Equal(t, 10*time.Second, cfg.ScanTimeout, "unset fields MUST keep defaults")

		opts := cfg.SessionOptions()
		assert.True(t, opts.WriteWithoutResponse)
		assert.Equal(t, 50*time.Millisecond, opts.PollInterval)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "poll_interval: [1, 2"))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeConfig(t, "log_level: loud\nwatchdog_timeout: 10ms\npoll_interval: 20ms\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loud")
		assert.Contains(t, err.Error(), "watchdog_timeout")
	})
}

func TestConfig_NewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.LogLevel = level

			logger := cfg.NewLogger()
			want, _ := logrus.ParseLevel(level)
			assert.Equal(t, want, logger.GetLevel())

			formatter, ok := logger.Formatter.(*logrus.TextFormatter)
			require.True(t, ok)
			assert.True(t, formatter.FullTimestamp)
			assert.Equal(t, time.RFC3339, formatter.TimestampFormat)
		})
	}

	cfg := &Config{LogLevel: "garbage"}
	assert.Equal(t, logrus.InfoLevel, cfg.NewLogger().GetLevel())
}
