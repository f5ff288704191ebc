package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the full configuration surface, read once at startup and
// passed by reference into every component.
type Config struct {
	DownloadDir string        `envconfig:"DOWNLOAD_DIR"`
	Port        int           `envconfig:"PORT" default:"8000"`
	Retention   time.Duration `envconfig:"RETENTION" default:"24h"`
	CleanupAt   string        `envconfig:"CLEANUP_AT" default:"02:00"`
	CACertPath  string        `envconfig:"CA_CERT_PATH"`
	YtdlpPath   string        `envconfig:"YTDLP_PATH"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"INFO"`
	DBPath      string        `envconfig:"DB_PATH" default:"fetches.db"`

	DiscordWebhookURL string `envconfig:"DISCORD_WEBHOOK_URL"`

	Telemetry struct {
		Enabled        bool          `default:"true"`
		OTLPEndpoint   string        `envconfig:"OTLP_ENDPOINT"`
		ExportInterval time.Duration `split_words:"true" default:"30s"`
	}

	Web struct {
		ReadTimeout     time.Duration `split_words:"true" default:"30s"`
		WriteTimeout    time.Duration `split_words:"true" default:"15m"`
		IdleTimeout     time.Duration `split_words:"true" default:"5s"`
		ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
	}
}

// LoadConfig reads environment variables and populates the Config struct.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	if cfg.DownloadDir == "" {
		cfg.DownloadDir = filepath.Join(os.TempDir(), "mediafetch")
	}

	if _, _, err := cfg.CleanupTime(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// BindAddress is the listen address for the HTTP server.
func (c *Config) BindAddress() string {
	return fmt.Sprintf("0.0.0.0:%d", c.Port)
}

// CleanupTime parses the daily sweep trigger as hour and minute.
func (c *Config) CleanupTime() (hour, minute int, err error) {
	parts := strings.SplitN(c.CleanupAt, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid CLEANUP_AT %q, expected HH:MM", c.CleanupAt)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid CLEANUP_AT hour %q", parts[0])
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid CLEANUP_AT minute %q", parts[1])
	}

	return hour, minute, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
