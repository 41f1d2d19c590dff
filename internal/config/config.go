package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"time"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Strip           StripConfig    `yaml:"strip"`
	Hue             HueConfig      `yaml:"hue"`
	Redis           RedisConfig    `yaml:"redis"`
	Control         ControlConfig  `yaml:"control"`
	Database        DatabaseConfig `yaml:"database"`
	Log             LogConfig      `yaml:"log"`
	Ledger          LedgerConfig   `yaml:"ledger"`
	EventBus        EventBusConfig `yaml:"eventbus"`
	DefaultPattern  *PatternConfig `yaml:"default_pattern"`
	WatchConfig     bool           `yaml:"watch_config"`     // Reload default_pattern when the file changes
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// Output names accepted in strip.outputs.
const (
	OutputLog = "log"
	OutputHue = "hue"
)

// StripConfig describes the LED strip and where its frames go
type StripConfig struct {
	Length       int      `yaml:"length"`
	TickInterval Duration `yaml:"tick_interval"`
	Outputs      []string `yaml:"outputs"`
}

// HueConfig contains Hue bridge settings for the mirror output
type HueConfig struct {
	Bridge       string  `yaml:"bridge"`
	Token        string  `yaml:"token"`
	LightID      int     `yaml:"light_id"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

// RedisConfig contains the Redis connection and the keys polled for suppliers.
// Colors and Headings map supplier names to Redis keys.
type RedisConfig struct {
	Addr         string            `yaml:"addr"`
	Password     string            `yaml:"password"`
	DB           int               `yaml:"db"`
	PollInterval Duration          `yaml:"poll_interval"`
	Colors       map[string]string `yaml:"colors"`
	Headings     map[string]string `yaml:"headings"`
}

// Enabled reports whether a Redis address is configured
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// ControlConfig contains HTTP control API settings.
// Colors and Headings name the supplier slots fed through PUT /sources.
type ControlConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	RateLimitRPS float64  `yaml:"rate_limit_rps"`
	Colors       []string `yaml:"colors"`
	Headings     []string `yaml:"headings"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// LedgerConfig contains pattern ledger settings
type LedgerConfig struct {
	Retention       Duration `yaml:"retention"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// envOverrides are applied after the file is parsed.
type envOverrides struct {
	LogLevel     string `env:"STRIPD_LOG_LEVEL"`
	DatabasePath string `env:"STRIPD_DATABASE_PATH"`
	StripLength  int    `env:"STRIPD_STRIP_LENGTH"`
	ControlPort  int    `env:"STRIPD_CONTROL_PORT"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses configuration data, applies defaults and environment
// overrides, and validates the result.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./stripd.sqlite"
	}

	// Strip defaults
	if cfg.Strip.Length == 0 {
		cfg.Strip.Length = 60
	}
	if cfg.Strip.TickInterval == 0 {
		cfg.Strip.TickInterval = Duration(30 * time.Millisecond)
	}
	if cfg.Strip.Outputs == nil {
		cfg.Strip.Outputs = []string{OutputLog}
	}

	// Hue defaults
	if cfg.Hue.RateLimitRPS == 0 {
		cfg.Hue.RateLimitRPS = 5.0
	}

	if cfg.Redis.PollInterval == 0 {
		cfg.Redis.PollInterval = Duration(500 * time.Millisecond)
	}

	// Control defaults
	if cfg.Control.Host == "" {
		cfg.Control.Host = "127.0.0.1"
	}
	if cfg.Control.Port == 0 {
		cfg.Control.Port = 8080
	}
	if cfg.Control.RateLimitRPS == 0 {
		cfg.Control.RateLimitRPS = 20.0
	}

	// Ledger defaults
	if cfg.Ledger.Retention == 0 {
		cfg.Ledger.Retention = Duration(30 * 24 * time.Hour)
	}
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}

	if cfg.EventBus.Workers <= 0 {
		cfg.EventBus.Workers = 2
	}
	if cfg.EventBus.QueueSize <= 0 {
		cfg.EventBus.QueueSize = 100
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

func (cfg *Config) applyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.DatabasePath != "" {
		cfg.Database.Path = o.DatabasePath
	}
	if o.StripLength != 0 {
		cfg.Strip.Length = o.StripLength
	}
	if o.ControlPort != 0 {
		cfg.Control.Port = o.ControlPort
	}
	return nil
}

// Validate checks values that have no sensible default
func (cfg *Config) Validate() error {
	if cfg.Strip.Length <= 0 {
		return fmt.Errorf("strip.length must be positive, got %d", cfg.Strip.Length)
	}
	if cfg.Strip.TickInterval <= 0 {
		return fmt.Errorf("strip.tick_interval must be positive, got %s", cfg.Strip.TickInterval.Duration())
	}
	for _, out := range cfg.Strip.Outputs {
		if !slices.Contains([]string{OutputLog, OutputHue}, out) {
			return fmt.Errorf("strip.outputs: unknown output %q", out)
		}
	}
	if slices.Contains(cfg.Strip.Outputs, OutputHue) && (cfg.Hue.Bridge == "" || cfg.Hue.LightID <= 0) {
		return fmt.Errorf("hue output needs hue.bridge and hue.light_id")
	}
	if cfg.Control.Port < 1 || cfg.Control.Port > 65535 {
		return fmt.Errorf("control.port out of range: %d", cfg.Control.Port)
	}
	return nil
}

// HasOutput reports whether the named output is enabled
func (cfg *Config) HasOutput(name string) bool {
	return slices.Contains(cfg.Strip.Outputs, name)
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
