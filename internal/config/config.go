// Package config resolves wfbrowser settings from defaults, the environment,
// optional .env files and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultDataDir   = "/usr/opsdata/waveforms/data"
	defaultDBDriver  = "sqlite"
	defaultDBDSN     = "wfbrowser.db"
	defaultTimezone  = "Local"
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
)

// Config holds the resolved settings shared by every wfbrowser command.
type Config struct {
	DataDir   string
	DBDriver  string
	DBDSN     string
	Location  *time.Location // event directories are named in this zone
	LogLevel  slog.Level
	LogFormat string
	Args      []string // positional arguments left after the flags
}

// LoadDotEnv sets variables from the named .env files, or ".env" when none
// are named. Variables already in the environment win. Missing files are
// skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load builds the configuration from the environment and args.
func Load(args []string) (Config, error) {
	flagSet := flag.NewFlagSet("wfbrowser", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagDataDir := flagSet.String("data-dir", envOrDefault("WFB_DATA_DIR", defaultDataDir), "root of the waveform data tree")
	flagDriver := flagSet.String("db-driver", envOrDefault("WFB_DB_DRIVER", defaultDBDriver), "database driver: sqlite|postgres")
	flagDSN := flagSet.String("db-dsn", envOrDefault("WFB_DB_DSN", defaultDBDSN), "SQLite file or PostgreSQL connection string")
	flagTZ := flagSet.String("tz", envOrDefault("WFB_TIMEZONE", defaultTimezone), "IANA time zone of the data directory names")
	flagLevel := flagSet.String("log-level", envOrDefault("WFB_LOG_LEVEL", defaultLogLevel), "debug|info|warn|error")
	flagFormat := flagSet.String("log-format", envOrDefault("WFB_LOG_FORMAT", defaultLogFormat), "text|json")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
		}
		return Config{}, err
	}

	config := Config{
		DataDir:   strings.TrimSpace(*flagDataDir),
		DBDriver:  strings.ToLower(strings.TrimSpace(*flagDriver)),
		DBDSN:     strings.TrimSpace(*flagDSN),
		LogFormat: strings.ToLower(strings.TrimSpace(*flagFormat)),
		Args:      flagSet.Args(),
	}

	if config.DataDir == "" {
		return Config{}, errors.New("data-dir cannot be empty")
	}
	if config.DBDriver != "sqlite" && config.DBDriver != "postgres" {
		return Config{}, fmt.Errorf("unsupported db-driver: %s", config.DBDriver)
	}
	if config.DBDSN == "" {
		return Config{}, errors.New("db-dsn cannot be empty")
	}

	loc, err := time.LoadLocation(strings.TrimSpace(*flagTZ))
	if err != nil {
		return Config{}, fmt.Errorf("invalid time zone: %w", err)
	}
	config.Location = loc

	if err := config.LogLevel.UnmarshalText([]byte(strings.TrimSpace(*flagLevel))); err != nil {
		return Config{}, fmt.Errorf("invalid log level: %w", err)
	}
	if config.LogFormat != "text" && config.LogFormat != "json" {
		return Config{}, fmt.Errorf("unsupported log-format: %s", config.LogFormat)
	}

	return config, nil
}

// NewLogger returns a logger writing to w in the configured format and level.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
