package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.NotEmpty(t, cfg.DownloadDir)
	require.Equal(t, "0.0.0.0:8000", cfg.BindAddress())
	require.Equal(t, "24h0m0s", cfg.Retention.String())
	require.Equal(t, "02:00", cfg.CleanupAt)
	require.Empty(t, cfg.CACertPath)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("RETENTION", "48h")
	t.Setenv("CLEANUP_AT", "03:30")
	t.Setenv("DOWNLOAD_DIR", "/srv/media")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:9000", cfg.BindAddress())
	require.Equal(t, float64(48), cfg.Retention.Hours())
	require.Equal(t, "/srv/media", cfg.DownloadDir)

	hour, minute, err := cfg.CleanupTime()
	require.NoError(t, err)
	require.Equal(t, 3, hour)
	require.Equal(t, 30, minute)
}

func TestLoadConfigRejectsBadCleanupAt(t *testing.T) {
	t.Setenv("CLEANUP_AT", "25:00")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{level: "DEBUG", want: slog.LevelDebug},
		{level: "debug", want: slog.LevelDebug},
		{level: "INFO", want: slog.LevelInfo},
		{level: "WARN", want: slog.LevelWarn},
		{level: "ERROR", want: slog.LevelError},
		{level: "bogus", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		require.Equal(t, tt.want, cfg.SlogLevel(), "level %q", tt.level)
	}
}
