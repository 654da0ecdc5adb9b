package config

import (
	"os"
	"testing"
	"time"

	"github.com/conneroisu/switchboard/internal/testutils"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SWITCHBOARD_SERVER_PORT", "")

	cfg, err := LoadFrom(newViper())
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "", cfg.Server.Host)
	assert.Equal(t, DefaultDrainTimeout, cfg.Server.DrainTimeout)
	assert.Equal(t, DefaultReadHeaderTimeout, cfg.Server.ReadHeaderTimeout)
	assert.Equal(t, DefaultIdleTimeout, cfg.Server.IdleTimeout)
	assert.Equal(t, 0, cfg.Server.MaxConnections)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, ":3000", cfg.Server.Address())
}

func TestPortFromEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		port     string
		prefixed string
		want     int
	}{
		{name: "PORT only", port: "8081", want: 8081},
		{name: "prefixed only", prefixed: "9090", want: 9090},
		{name: "PORT wins", port: "8081", prefixed: "9090", want: 8081},
		{name: "neither", want: DefaultPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PORT", tt.port)
			t.Setenv("SWITCHBOARD_SERVER_PORT", tt.prefixed)
			if tt.port == "" {
				os.Unsetenv("PORT")
			}
			if tt.prefixed == "" {
				os.Unsetenv("SWITCHBOARD_SERVER_PORT")
			}

			cfg, err := LoadFrom(newViper())
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Server.Port)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	path := testutils.WriteConfigFile(t, `server:
  host: 127.0.0.1
  port: 4000
  drain_timeout: 2s
  max_connections: 64
log:
  level: debug
  format: json
  compress: true
  add_source: true
`)

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Server.DrainTimeout)
	assert.Equal(t, 64, cfg.Server.MaxConnections)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Log.Compress)
	assert.True(t, cfg.Log.AddSource)
	assert.Equal(t, "127.0.0.1:4000", cfg.Server.Address())
}

func TestLoadInvalidType(t *testing.T) {
	v := newViper()
	v.Set("server.port", "not-a-port")

	_, err := LoadFrom(v)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 3000, DrainTimeout: time.Second},
			Log:    LogConfig{Level: "info", Format: "text"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"system assigned port", func(c *Config) { c.Server.Port = 0 }, false},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"negative port", func(c *Config) { c.Server.Port = -1 }, true},
		{"host with shell characters", func(c *Config) { c.Server.Host = "localhost;rm" }, true},
		{"zero drain timeout", func(c *Config) { c.Server.DrainTimeout = 0 }, true},
		{"negative idle timeout", func(c *Config) { c.Server.IdleTimeout = -time.Second }, true},
		{"negative max connections", func(c *Config) { c.Server.MaxConnections = -5 }, true},
		{"unknown level", func(c *Config) { c.Log.Level = "trace" }, true},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, true},
		{"negative rotation", func(c *Config) { c.Log.File = "x.log"; c.Log.MaxBackups = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPortEnvBeatsConfigFile(t *testing.T) {
	t.Setenv("PORT", "8082")
	t.Setenv("SWITCHBOARD_SERVER_PORT", "9091")

	v := newViper()
	v.SetConfigFile(testutils.WriteConfigFile(t, "server:\n  port: 4000\n"))
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 8082, cfg.Server.Port)
}

func TestInvalidPortEnv(t *testing.T) {
	for _, raw := range []string{"http", "70000", "-1"} {
		t.Run(raw, func(t *testing.T) {
			t.Setenv("PORT", raw)

			_, err := LoadFrom(newViper())
			assert.Error(t, err)
		})
	}
}
