package config

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pgvanniekerk/ezsteal/internal/logging"
	"github.com/pgvanniekerk/ezsteal/internal/pool"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable read by ApplyEnv.
const EnvPrefix = "EZSTEAL_"

// FileConfig is the layout of a configuration file.
type FileConfig struct {
	Pool     PoolConfig     `yaml:"pool" json:"pool"`
	Log      LogConfig      `yaml:"log" json:"log"`
	Admin    AdminConfig    `yaml:"admin" json:"admin"`
	Reporter ReporterConfig `yaml:"reporter" json:"reporter"`
	Debug    DebugConfig    `yaml:"debug" json:"debug"`
}

// PoolConfig holds the pool settings. Durations use time.ParseDuration syntax.
type PoolConfig struct {
	MaxWorkers      int    `yaml:"max_workers" json:"max_workers"`
	MaxPendingTasks int    `yaml:"max_pending_tasks" json:"max_pending_tasks"`
	Backoff         string `yaml:"backoff" json:"backoff"`
	ScaleUpInterval string `yaml:"scale_up_interval" json:"scale_up_interval"`
	PinWorkers      bool   `yaml:"pin_workers" json:"pin_workers"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// AdminConfig configures the admin HTTP server. An empty Addr disables it.
type AdminConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// ReporterConfig configures the periodic stats report. An empty Interval
// disables it.
type ReporterConfig struct {
	Interval string `yaml:"interval" json:"interval"`
}

// DebugConfig holds settings meant for troubleshooting.
type DebugConfig struct {
	DeadlockDetection bool   `yaml:"deadlock_detection" json:"deadlock_detection"`
	DeadlockTimeout   string `yaml:"deadlock_timeout" json:"deadlock_timeout"`
}

// Default returns the configuration used when no file or variable says otherwise.
func Default() *FileConfig {
	return &FileConfig{
		Pool: PoolConfig{
			MaxWorkers:      4,
			MaxPendingTasks: pool.DefaultMaxPendingTasks,
			Backoff:         "1s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Debug: DebugConfig{
			DeadlockTimeout: "30s",
		},
	}
}

// LoadFile reads a YAML or JSON file, chosen by extension, over the defaults.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return config, nil
}

// ApplyEnv loads the given .env files, if any, into the process environment and
// then overrides c with every EZSTEAL_* variable that is set. Variables already
// present in the environment win over the files.
func (c *FileConfig) ApplyEnv(envFiles ...string) error {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	ints := map[string]*int{
		"MAX_WORKERS":       &c.Pool.MaxWorkers,
		"MAX_PENDING_TASKS": &c.Pool.MaxPendingTasks,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"PIN_WORKERS":        &c.Pool.PinWorkers,
		"DEADLOCK_DETECTION": &c.Debug.DeadlockDetection,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
			}
			*dst = b
		}
	}

	strs := map[string]*string{
		"BACKOFF":           &c.Pool.Backoff,
		"SCALE_UP_INTERVAL": &c.Pool.ScaleUpInterval,
		"LOG_LEVEL":         &c.Log.Level,
		"LOG_FORMAT":        &c.Log.Format,
		"ADMIN_ADDR":        &c.Admin.Addr,
		"REPORT_INTERVAL":   &c.Reporter.Interval,
		"DEADLOCK_TIMEOUT":  &c.Debug.DeadlockTimeout,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	return nil
}

// Validate checks every field and returns the first problem found.
func (c *FileConfig) Validate() error {
	if c.Pool.MaxWorkers < 1 || c.Pool.MaxWorkers > math.MaxUint16 {
		return fmt.Errorf("max_workers must be between 1 and %d, got %d", math.MaxUint16, c.Pool.MaxWorkers)
	}
	if c.Pool.MaxPendingTasks < 0 {
		return fmt.Errorf("max_pending_tasks must not be negative, got %d", c.Pool.MaxPendingTasks)
	}

	durations := []struct {
		name  string
		value string
	}{
		{"backoff", c.Pool.Backoff},
		{"scale_up_interval", c.Pool.ScaleUpInterval},
		{"reporter.interval", c.Reporter.Interval},
		{"deadlock_timeout", c.Debug.DeadlockTimeout},
	}
	for _, d := range durations {
		if _, err := parseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
	}

	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("unknown log level: %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format: %q", c.Log.Format)
	}

	return nil
}

// Size returns the worker ceiling. Call Validate first.
func (c *FileConfig) Size() uint16 {
	return uint16(c.Pool.MaxWorkers)
}

// Options converts the pool section to pool options.
func (c *FileConfig) Options() ([]pool.Option, error) {
	backoff, err := parseDuration(c.Pool.Backoff)
	if err != nil {
		return nil, fmt.Errorf("invalid backoff: %w", err)
	}
	interval, err := parseDuration(c.Pool.ScaleUpInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid scale_up_interval: %w", err)
	}

	opts := []pool.Option{
		pool.WithMaxPendingTasks(c.Pool.MaxPendingTasks),
		pool.WithBackoff(backoff),
		pool.WithScaleUpInterval(interval),
		pool.WithPinWorkers(c.Pool.PinWorkers),
	}

	if c.Debug.DeadlockDetection {
		timeout, err := parseDuration(c.Debug.DeadlockTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid deadlock_timeout: %w", err)
		}
		opts = append(opts, pool.WithDeadlockDetection(timeout))
	}

	return opts, nil
}

// ReportInterval returns the reporter interval; zero means reporting is off.
func (c *FileConfig) ReportInterval() time.Duration {
	d, _ := parseDuration(c.Reporter.Interval)
	return d
}

// NewLogger builds a logrus-backed Logger writing to out with the configured
// level and formatter.
func (c *FileConfig) NewLogger(out io.Writer) *logging.Logrus {
	l := log.New()
	l.SetOutput(out)
	if strings.ToLower(c.Log.Format) == "json" {
		l.SetFormatter(&log.JSONFormatter{})
	} else {
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	sink := logging.NewLogrus(l)
	level, _ := logging.ParseLevel(c.Log.Level)
	sink.SetLevel(level)

	return sink
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// parseDuration treats an empty string as zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
