package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pgvanniekerk/ezsteal/internal/pool"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFileYAML(t *testing.T) {
	path := writeFile(t, "ezsteal.yaml", `
pool:
  max_workers: 8
  max_pending_tasks: 20
  backoff: 5ms
  scale_up_interval: 100ms
  pin_workers: true
log:
  level: debug
  format: json
admin:
  addr: ":9090"
reporter:
  interval: 2s
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, 8, cfg.Pool.MaxWorkers)
	require.Equal(t, uint16(8), cfg.Size())
	require.Equal(t, 20, cfg.Pool.MaxPendingTasks)
	require.True(t, cfg.Pool.PinWorkers)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, ":9090", cfg.Admin.Addr)
	require.Equal(t, 2*time.Second, cfg.ReportInterval())
}

func TestLoadFileJSON(t *testing.T) {
	path := writeFile(t, "ezsteal.json", `{
  "pool": {"max_workers": 2, "backoff": "10ms"},
  "log": {"level": "warn"}
}`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, 2, cfg.Pool.MaxWorkers)
	require.Equal(t, "10ms", cfg.Pool.Backoff)
	require.Equal(t, pool.DefaultMaxPendingTasks, cfg.Pool.MaxPendingTasks)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadFile(writeFile(t, "ezsteal.toml", "x = 1"))
	require.ErrorContains(t, err, "unsupported config format")

	_, err = LoadFile(writeFile(t, "bad.yaml", "pool: [unterminated"))
	require.ErrorContains(t, err, "failed to parse YAML")

	_, err = LoadFile(writeFile(t, "bad.json", "{"))
	require.ErrorContains(t, err, "failed to parse JSON")
}

func TestValidate(t *testing.T) {
	require.NoError(t, Default().Validate())

	cases := map[string]func(c *FileConfig){
		"zero workers":       func(c *FileConfig) { c.Pool.MaxWorkers = 0 },
		"too many workers":   func(c *FileConfig) { c.Pool.MaxWorkers = 70000 },
		"negative threshold": func(c *FileConfig) { c.Pool.MaxPendingTasks = -1 },
		"bad backoff":        func(c *FileConfig) { c.Pool.Backoff = "soon" },
		"bad interval":       func(c *FileConfig) { c.Reporter.Interval = "often" },
		"bad level":          func(c *FileConfig) { c.Log.Level = "loud" },
		"bad format":         func(c *FileConfig) { c.Log.Format = "xml" },
	}
	for name, mutate := range cases {
		c := Default()
		mutate(c)
		require.Error(t, c.Validate(), name)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("EZSTEAL_MAX_WORKERS", "16")
	t.Setenv("EZSTEAL_PIN_WORKERS", "true")
	t.Setenv("EZSTEAL_LOG_LEVEL", "error")
	t.Setenv("EZSTEAL_ADMIN_ADDR", "")

	cfg := Default()
	cfg.Admin.Addr = ":1"
	require.NoError(t, cfg.ApplyEnv())

	require.Equal(t, 16, cfg.Pool.MaxWorkers)
	require.True(t, cfg.Pool.PinWorkers)
	require.Equal(t, "error", cfg.Log.Level)
	require.Equal(t, ":1", cfg.Admin.Addr)
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("EZSTEAL_MAX_PENDING_TASKS", "many")
	require.ErrorContains(t, Default().ApplyEnv(), "EZSTEAL_MAX_PENDING_TASKS")

	t.Setenv("EZSTEAL_MAX_PENDING_TASKS", "3")
	t.Setenv("EZSTEAL_DEADLOCK_DETECTION", "maybe")
	require.ErrorContains(t, Default().ApplyEnv(), "EZSTEAL_DEADLOCK_DETECTION")
}

func TestApplyEnvLoadsDotEnv(t *testing.T) {
	t.Cleanup(func() {
		os.Unsetenv("EZSTEAL_BACKOFF")
		os.Unsetenv("EZSTEAL_REPORT_INTERVAL")
	})
	t.Setenv("EZSTEAL_REPORT_INTERVAL", "3s")

	path := writeFile(t, ".env", "EZSTEAL_BACKOFF=250ms\nEZSTEAL_REPORT_INTERVAL=9s\n")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(path))

	require.Equal(t, "250ms", cfg.Pool.Backoff)
	// The process environment wins over the file.
	require.Equal(t, 3*time.Second, cfg.ReportInterval())

	require.Error(t, Default().ApplyEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.Pool.MaxWorkers = 3
	cfg.Pool.MaxPendingTasks = 7
	cfg.Pool.Backoff = "2ms"

	opts, err := cfg.Options()
	require.NoError(t, err)

	p := pool.New(cfg.Size(), opts...)
	defer p.Stop()

	require.Equal(t, 3, p.MaxWorkers())
	require.Equal(t, 7, p.MaxPendingTasks())

	cfg.Pool.ScaleUpInterval = "never"
	_, err = cfg.Options()
	require.Error(t, err)
}

func TestOptionsDeadlockDetection(t *testing.T) {
	cfg := Default()
	opts, err := cfg.Options()
	require.NoError(t, err)
	require.Len(t, opts, 4)

	cfg.Debug.DeadlockDetection = true
	cfg.Debug.DeadlockTimeout = "1m"
	opts, err = cfg.Options()
	require.NoError(t, err)
	require.Len(t, opts, 5)

	p := pool.New(2, opts...)
	defer p.Stop()
	require.NoError(t, p.Submit(func() {}))

	cfg.Debug.DeadlockTimeout = "soon"
	_, err = cfg.Options()
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	buf := &bytes.Buffer{}
	logger := cfg.NewLogger(buf)
	logger.Info("hidden", nil)
	logger.Warn("shown", map[string]any{"worker": 1})

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)
	require.Contains(t, buf.String(), `"worker":1`)
}
