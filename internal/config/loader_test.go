package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
defaults:
  user: deploy
  exec_timeout: 2m
hosts:
  web:
    host: web.example.com
    port: 2222
    host_key: `+testHostKey+`
logging:
  format: json
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "deploy", cfg.Defaults.User)
	assert.Equal(t, 2*time.Minute, cfg.Defaults.ExecTimeout)
	assert.Equal(t, 22, cfg.Defaults.Port, "unset keys keep their defaults")
	assert.Equal(t, 30*time.Second, cfg.Defaults.ConnectTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)

	host, err := cfg.GetHost("web")
	require.NoError(t, err)
	assert.Equal(t, "web.example.com", host.Host)
	assert.Equal(t, 2222, host.Port)
	assert.Equal(t, testHostKey, host.HostKey)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
defaults:
  user: deploy
  connect_timeout: 5s
`)
	t.Setenv("SSHINVOKE_DEFAULTS_USER", "admin")
	t.Setenv("SSHINVOKE_DEFAULTS_EXEC_TIMEOUT", "45s")
	t.Setenv("SSHINVOKE_LOGGING_LEVEL", "debug")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "admin", cfg.Defaults.User)
	assert.Equal(t, 5*time.Second, cfg.Defaults.ConnectTimeout)
	assert.Equal(t, 45*time.Second, cfg.Defaults.ExecTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoader_MissingExplicitFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoader_MissingDefaultFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	cfg, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultGlobalConfig(), cfg)
}

func TestLoader_InvalidConfig(t *testing.T) {
	path := writeConfig(t, `
hosts:
  web:
    port: 22
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hosts.web.host")
}

func TestLoader_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultGlobalConfig()
	cfg.Defaults.ExecTimeout = 90 * time.Second
	require.NoError(t, cfg.AddHost("db", HostConfig{Host: "10.0.0.2", User: "postgres", Insecure: true}))
	require.NoError(t, SaveGlobalConfigTo(path, cfg))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
