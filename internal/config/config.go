// Package config provides configuration management for switchboard using
// Viper for loading from files, environment variables, and command-line flags.
//
// The only setting most deployments touch is the listening port, which is
// read from PORT (default 3000). Everything else has a SWITCHBOARD_ prefixed
// environment variable and a key in .switchboard.yml.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable viper binds automatically.
const EnvPrefix = "SWITCHBOARD"

// PortEnv is the conventional single knob for the listening port.
const PortEnv = "PORT"

// Defaults
const (
	DefaultPort              = 3000
	DefaultDrainTimeout      = 5 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
)

type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
	Log    LogConfig    `mapstructure:"log" yaml:"log" json:"log"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host" yaml:"host" json:"host"`
	Port              int           `mapstructure:"port" yaml:"port" json:"port"`
	DrainTimeout      time.Duration `mapstructure:"drain_timeout" yaml:"drain_timeout" json:"drain_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" json:"read_header_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" json:"idle_timeout"`
	MaxConnections    int           `mapstructure:"max_connections" yaml:"max_connections" json:"max_connections"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level" json:"level"`
	Format     string `mapstructure:"format" yaml:"format" json:"format"`
	File       string `mapstructure:"file" yaml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress" json:"compress"`
	AddSource  bool   `mapstructure:"add_source" yaml:"add_source" json:"add_source"`
}

// Address is the host:port the server binds to.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SetDefaults registers default values and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.drain_timeout", DefaultDrainTimeout)
	v.SetDefault("server.read_header_timeout", DefaultReadHeaderTimeout)
	v.SetDefault("server.idle_timeout", DefaultIdleTimeout)
	v.SetDefault("server.max_connections", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
	v.SetDefault("log.add_source", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

}

// Load unmarshals the global viper instance into a validated Config.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals v into a validated Config. PORT, when set, overrides
// whatever viper resolved for server.port; callers apply an explicit --port
// on top of the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	if err := applyPortEnv(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyPortEnv lets PORT win over SWITCHBOARD_SERVER_PORT and the file.
// viper cannot express this ordering: AutomaticEnv is consulted before any
// BindEnv alias.
func applyPortEnv(cfg *Config) error {
	raw, ok := os.LookupEnv(PortEnv)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return nil
	}

	port, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid configuration: %s=%q is not a port number", PortEnv, raw)
	}
	cfg.Server.Port = port
	return nil
}

// Validate checks configuration values for correctness
func Validate(cfg *Config) error {
	if err := validateServerConfig(&cfg.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateLogConfig(&cfg.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	return nil
}

func validateServerConfig(cfg *ServerConfig) error {
	// 0 asks the kernel for a free port
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", cfg.Port)
	}

	if strings.ContainsAny(cfg.Host, ";&|$`()<>\"'\\ ") {
		return fmt.Errorf("host %q contains invalid characters", cfg.Host)
	}

	if cfg.DrainTimeout <= 0 {
		return fmt.Errorf("drain_timeout must be positive, got %s", cfg.DrainTimeout)
	}
	if cfg.ReadHeaderTimeout < 0 {
		return fmt.Errorf("read_header_timeout must not be negative, got %s", cfg.ReadHeaderTimeout)
	}
	if cfg.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout must not be negative, got %s", cfg.IdleTimeout)
	}
	if cfg.MaxConnections < 0 {
		return fmt.Errorf("max_connections must not be negative, got %d", cfg.MaxConnections)
	}

	return nil
}

func validateLogConfig(cfg *LogConfig) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", cfg.Level)
	}

	switch strings.ToLower(cfg.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if cfg.File != "" && (cfg.MaxSizeMB < 0 || cfg.MaxBackups < 0 || cfg.MaxAgeDays < 0) {
		return fmt.Errorf("log rotation limits must not be negative")
	}

	return nil
}
