package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/yoanbernabeu/sshinvoke/internal/constants"
)

// Loader handles configuration loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// ConfigFile returns the file the loader reads, explicit or default.
func (l *Loader) ConfigFile() (string, error) {
	if l.configFile != "" {
		return l.configFile, nil
	}
	return GetGlobalConfigPath()
}

// Load loads configuration with proper precedence:
// defaults < config file < env vars
func (l *Loader) Load() (*GlobalConfig, error) {
	// Start with defaults
	cfg := DefaultGlobalConfig()

	// Set up Viper
	l.setupViper(cfg)

	// Load config file
	if err := l.loadConfigFile(); err != nil {
		return nil, err
	}

	// Unmarshal into config struct
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Hosts == nil {
		cfg.Hosts = make(map[string]HostConfig)
	}

	// Validate
	if errs := ValidateGlobalConfig(cfg); errs.HasErrors() {
		return nil, fmt.Errorf("config validation failed: %w", errs)
	}

	return cfg, nil
}

// setupViper configures Viper with defaults and environment bindings.
func (l *Loader) setupViper(cfg *GlobalConfig) {
	v := l.v

	v.SetConfigType("yaml")

	// Environment variables - SSHINVOKE_ prefix
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults from config struct
	v.SetDefault("defaults.user", cfg.Defaults.User)
	v.SetDefault("defaults.port", cfg.Defaults.Port)
	v.SetDefault("defaults.connect_timeout", cfg.Defaults.ConnectTimeout)
	v.SetDefault("defaults.exec_timeout", cfg.Defaults.ExecTimeout)
	v.SetDefault("defaults.close_grace", cfg.Defaults.CloseGrace)
	v.SetDefault("defaults.known_hosts", cfg.Defaults.KnownHosts)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	// Explicitly bind environment variables (Viper's Unmarshal has issues without this)
	bindEnvVars(v)

	// AutomaticEnv for any keys not explicitly bound
	v.AutomaticEnv()
}

// loadConfigFile reads the config file. A missing default file is not an
// error; a missing explicit file is.
func (l *Loader) loadConfigFile() error {
	path, err := l.ConfigFile()
	if err != nil {
		if l.configFile != "" {
			return err
		}
		return nil
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && l.configFile == "" {
			return nil
		}
		return fmt.Errorf("failed to load config file: %w", err)
	}

	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// bindEnvVars binds environment variables for config keys.
// e.g. defaults.connect_timeout -> SSHINVOKE_DEFAULTS_CONNECT_TIMEOUT
func bindEnvVars(v *viper.Viper) {
	envBindings := []string{
		"defaults.user",
		"defaults.port",
		"defaults.connect_timeout",
		"defaults.exec_timeout",
		"defaults.close_grace",
		"defaults.known_hosts",
		"logging.level",
		"logging.format",
	}

	for _, key := range envBindings {
		envSuffix := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, constants.EnvPrefix+"_"+envSuffix)
	}
}

// Viper returns the underlying Viper instance for advanced use.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*GlobalConfig, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}
