package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"WFB_DATA_DIR", "WFB_DB_DRIVER", "WFB_DB_DSN",
		"WFB_TIMEZONE", "WFB_LOG_LEVEL", "WFB_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "/usr/opsdata/waveforms/data", cfg.DataDir)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "wfbrowser.db", cfg.DBDSN)
	assert.Equal(t, time.Local, cfg.Location)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.Args)
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("WFB_DATA_DIR", "/env/data")
	t.Setenv("WFB_DB_DRIVER", "postgres")
	t.Setenv("WFB_DB_DSN", "postgres://wf@db/waveforms")
	t.Setenv("WFB_TIMEZONE", "America/New_York")
	t.Setenv("WFB_LOG_LEVEL", "debug")

	cfg, err := Load([]string{"-data-dir", "/flag/data", "-log-format", "JSON", "ingest", "-x"})
	require.NoError(t, err)
	assert.Equal(t, "/flag/data", cfg.DataDir, "flags override the environment")
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "postgres://wf@db/waveforms", cfg.DBDSN)
	assert.Equal(t, "America/New_York", cfg.Location.String())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"ingest", "-x"}, cfg.Args)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		env         map[string]string
		errorSubstr string
	}{
		{
			name:        "unknown driver",
			args:        []string{"-db-driver", "oracle"},
			errorSubstr: "unsupported db-driver: oracle",
		},
		{
			name:        "unknown driver from env",
			env:         map[string]string{"WFB_DB_DRIVER": "mysql"},
			errorSubstr: "unsupported db-driver: mysql",
		},
		{
			name:        "blank data dir",
			args:        []string{"-data-dir", " "},
			errorSubstr: "data-dir cannot be empty",
		},
		{
			name:        "bad time zone",
			args:        []string{"-tz", "Mars/Olympus"},
			errorSubstr: "invalid time zone",
		},
		{
			name:        "bad log level",
			env:         map[string]string{"WFB_LOG_LEVEL": "loud"},
			errorSubstr: "invalid log level",
		},
		{
			name:        "bad log format",
			args:        []string{"-log-format", "xml"},
			errorSubstr: "unsupported log-format: xml",
		},
		{
			name:        "unknown flag",
			args:        []string{"-verbose"},
			errorSubstr: "flag provided but not defined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorSubstr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, "wfb.env")
	require.NoError(t, os.WriteFile(envFile,
		[]byte("WFB_TEST_DOTENV_DIR=/dotenv/data\nWFB_TEST_DOTENV_KEEP=from-file\n"), 0o644))

	t.Setenv("WFB_TEST_DOTENV_KEEP", "from-env")
	t.Cleanup(func() { os.Unsetenv("WFB_TEST_DOTENV_DIR") })

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "/dotenv/data", os.Getenv("WFB_TEST_DOTENV_DIR"))
	assert.Equal(t, "from-env", os.Getenv("WFB_TEST_DOTENV_KEEP"), "existing variables win")

	bad := filepath.Join(dir, "bad.env")
	require.NoError(t, os.WriteFile(bad, []byte("NOT A VALID LINE\n"), 0o644))
	assert.Error(t, LoadDotEnv(bad))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: slog.LevelWarn, LogFormat: "json"}
	logger := cfg.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("duplicate file", "file", "a.txt")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"duplicate file"`)
	assert.Contains(t, buf.String(), `"file":"a.txt"`)

	buf.Reset()
	cfg.LogFormat = "text"
	cfg.NewLogger(&buf).Error("boom")
	assert.Contains(t, buf.String(), "msg=boom")
}
