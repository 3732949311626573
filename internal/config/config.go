package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-scheduler/internal/logger"
)

// Config holds the settings shared by the alarm binaries.
type Config struct {
	// ListenAddress is the gRPC listen address. Empty disables the remote command port.
	ListenAddress string `yaml:"listen_addr"`
	// LogLevel is the minimum zap level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// TickInterval bounds how long a worker waits between checks of its alarms.
	TickInterval time.Duration `yaml:"tick_interval"`
	// DisplayInterval is the period between two displays of the same alarm.
	DisplayInterval time.Duration `yaml:"display_interval"`
	// SweepInterval is how often the control path removes expired alarms.
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// QueueSize is the capacity of the dispatch queue between control path and dispatcher.
	QueueSize int `yaml:"queue_size"`
	// RetryDelay is how long a ticket waits before redelivery after a failed assignment.
	RetryDelay time.Duration `yaml:"retry_delay"`
	// MaxWorkers caps the number of live workers. Zero means no cap.
	MaxWorkers int `yaml:"max_workers"`
	// MaxMessageLength is the byte limit applied to alarm messages.
	MaxMessageLength int `yaml:"max_message_length"`
	// Timeout is the per-call deadline used by the command client.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for scheduler settings.
	DefaultConfigFilename = "alarm-scheduler.yaml"

	// DefaultTickInterval is the default worker polling period.
	DefaultTickInterval = time.Second

	// DefaultDisplayInterval is the default period between periodic displays.
	DefaultDisplayInterval = 5 * time.Second

	// DefaultSweepInterval is the default expiry sweep period.
	DefaultSweepInterval = 500 * time.Millisecond

	// DefaultQueueSize is the default dispatch queue capacity.
	DefaultQueueSize = 64

	// DefaultRetryDelay is the default redelivery delay for dispatch tickets.
	DefaultRetryDelay = time.Second

	// DefaultMaxMessageLength matches the longest message the command grammar accepts.
	DefaultMaxMessageLength = 128

	// DefaultTimeout is the default duration for client calls.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeValue is returned when a capacity knob is negative.
	errNegativeValue = errors.New("value must not be negative")
	// errUnknownLogLevel is returned for log levels zap does not know.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	// Defaults always validate.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// A missing file at the default path yields the defaults.
func Load(path string) (*Config, error) {
	usingDefault := path == ""
	if usingDefault {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if usingDefault && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings and fills in defaults for unset durations and sizes.
//
//nolint:cyclop // A flat list of defaults reads better than a table here.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ListenAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
			return fmt.Errorf("invalid listen address: %w", err)
		}
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.LogLevel)
	}

	if cfg.MaxWorkers < 0 {
		return fmt.Errorf("max_workers: %w", errNegativeValue)
	}

	if cfg.QueueSize < 0 {
		return fmt.Errorf("queue_size: %w", errNegativeValue)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}

	if cfg.DisplayInterval <= 0 {
		cfg.DisplayInterval = DefaultDisplayInterval
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return nil
}
