package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	captureA = "# R1M1GSET=5.5 @ 0(-12.5)\ntime\tR1M1GMES\tR1M1PMES\n-1.0\t1\t10\n-0.5\t2\t20\n0.0\t3\t30\n"
	captureB = "time\tR1N1GMES\n-1.0\t4\n-0.5\t5\n0.0\t6\n"
)

type testEnv struct {
	dataDir string
	dsn     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, key := range []string{
		"WFB_DATA_DIR", "WFB_DB_DRIVER", "WFB_DB_DSN",
		"WFB_TIMEZONE", "WFB_LOG_LEVEL", "WFB_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}

	env := &testEnv{dataDir: t.TempDir(), dsn: filepath.Join(t.TempDir(), "wf.db")}
	dir := filepath.Join(env.dataDir, "rf", "1L22", "quench", "2018_04_24", "062915.4")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, body := range map[string]string{
		"R1M.2018_04_24_062915.4.txt": captureA,
		"R1N.2018_04_24_062915.4.txt": captureB,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return env
}

// run executes one command and returns its stdout.
func (env *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{
		"-data-dir", env.dataDir,
		"-db-dsn", env.dsn,
		"-tz", "UTC",
		"-log-level", "error",
	}, args...)
	err := run(full, &stdout, &stderr)
	return stdout.String(), err
}

var eventArgs = []string{"-time", "2018-04-24 06:29:15.456", "-location", "1L22", "-classification", "quench"}

func TestRunUsage(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t)
	assert.ErrorIs(t, err, flag.ErrHelp)

	_, err = env.run(t, "frobnicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "frobnicate"`)
}

func TestParseTime(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	got, err := parseTime("2018-04-24 06:29:15.4", ny)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2018, 4, 24, 6, 29, 15, 400_000_000, ny), got)

	got, err = parseTime("2018-04-24T10:29:15Z", ny)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2018, 4, 24, 10, 29, 15, 0, time.UTC)))

	_, err = parseTime("yesterday", ny)
	assert.Error(t, err)
}

func TestFiles(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, append([]string{"files"}, eventArgs...)...)
	require.NoError(t, err)
	assert.Equal(t, "R1M.2018_04_24_062915.4.txt\nR1N.2018_04_24_062915.4.txt\n", out)

	_, err = env.run(t, "files", "-location", "1L22")
	assert.Error(t, err)
}

func TestIngestExportAndFilter(t *testing.T) {
	env := newTestEnv(t)

	labelFile := filepath.Join(t.TempDir(), "labels.jsonl")
	require.NoError(t, os.WriteFile(labelFile,
		[]byte(`{"model-name": "cnn_v2", "name": "cavity", "value": 3, "confidence": 0.9}`+"\n"), 0o644))

	out, err := env.run(t, append([]string{"ingest", "-labels", labelFile}, eventArgs...)...)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	_, err = env.run(t, append([]string{"ingest"}, eventArgs...)...)
	assert.Error(t, err, "the same event cannot be stored twice")

	out, err = env.run(t, "export", "-id", "1", "-format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "R1M1GMES")
	assert.Contains(t, out, "R1N1GMES")

	out, err = env.run(t, "export", "-id", "1", "-format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"location":"1L22"`)

	_, err = env.run(t, "export", "-id", "1", "-format", "xml")
	assert.Error(t, err)

	out, err = env.run(t, "filter", "-system", "rf", "-label", "cavity=3")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "1\t"))
	assert.Contains(t, lines[0], "cavity=3")

	out, err = env.run(t, "filter", "-label", "cavity=4")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = env.run(t, "filter", "-labeled=false", "-include-unlabeled")
	require.NoError(t, err)
	assert.Empty(t, out, "a labeled event never matches an unlabeled-only filter")

	out, err = env.run(t, "filter", "-begin", "2018-04-25")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLabels(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, append([]string{"ingest"}, eventArgs...)...)
	require.NoError(t, err)

	dir := t.TempDir()
	good := filepath.Join(dir, "good.jsonl")
	require.NoError(t, os.WriteFile(good,
		[]byte(`{"model-name": "m", "name": "fault-type", "value": "microphonics"}`+"\n"), 0o644))
	bad := filepath.Join(dir, "bad.jsonl")
	require.NoError(t, os.WriteFile(bad, []byte("cavity,3\n"), 0o644))

	_, err = env.run(t, "labels", "-file", good, "-validate")
	assert.NoError(t, err)
	_, err = env.run(t, "labels", "-file", bad, "-validate")
	assert.Error(t, err)

	_, err = env.run(t, "labels", "-id", "1", "-file", good)
	require.NoError(t, err)
	_, err = env.run(t, "labels", "-id", "1", "-file", good)
	assert.Error(t, err, "labels of the same name need -force")
	_, err = env.run(t, "labels", "-id", "1", "-file", good, "-force")
	assert.NoError(t, err)

	_, err = env.run(t, "labels", "-id", "42", "-file", good)
	assert.Error(t, err)

	out, err := env.run(t, "filter", "-label", "fault-type")
	require.NoError(t, err)
	assert.Contains(t, out, "fault-type=microphonics")
}

func TestSeries(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "series", "-add", "-name", "GMES", "-pattern", "%GMES", "-system", "rf", "-units", "MV/m")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	_, err = env.run(t, "series", "-add", "-name", "broken", "-system", "rf")
	assert.Error(t, err)

	out, err = env.run(t, "series", "-system", "rf")
	require.NoError(t, err)
	assert.Equal(t, "1\tGMES\trf\t%GMES\tMV/m\n", out)

	_, err = env.run(t, append([]string{"ingest"}, eventArgs...)...)
	require.NoError(t, err)
	out, err = env.run(t, "export", "-id", "1", "-series", "GMES")
	require.NoError(t, err)
	assert.Contains(t, out, "R1M1GMES")
	assert.NotContains(t, out, "R1M1PMES")
}
