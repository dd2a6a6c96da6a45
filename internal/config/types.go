package config

import (
	"time"

	"github.com/yoanbernabeu/sshinvoke/internal/constants"
)

// GlobalConfig represents the global ~/.config/sshinvoke/config.yaml
type GlobalConfig struct {
	Defaults Defaults              `yaml:"defaults" mapstructure:"defaults"`
	Hosts    map[string]HostConfig `yaml:"hosts" mapstructure:"hosts"`
	Logging  LoggingConfig         `yaml:"logging" mapstructure:"logging"`
}

// Defaults apply to every invocation unless a host or a flag overrides them
type Defaults struct {
	User           string        `yaml:"user,omitempty" mapstructure:"user"`
	Port           int           `yaml:"port,omitempty" mapstructure:"port"`
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty" mapstructure:"connect_timeout"`
	// ExecTimeout is the hard execution deadline, zero disables it
	ExecTimeout time.Duration `yaml:"exec_timeout,omitempty" mapstructure:"exec_timeout"`
	CloseGrace  time.Duration `yaml:"close_grace,omitempty" mapstructure:"close_grace"`
	KnownHosts  string        `yaml:"known_hosts,omitempty" mapstructure:"known_hosts"`
}

// HostConfig represents a named remote host
type HostConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	User string `yaml:"user,omitempty" mapstructure:"user"`
	Port int    `yaml:"port,omitempty" mapstructure:"port"`
	// HostKey pins the server key, in authorized_keys format
	HostKey    string `yaml:"host_key,omitempty" mapstructure:"host_key"`
	KnownHosts string `yaml:"known_hosts,omitempty" mapstructure:"known_hosts"`
	// Insecure disables host key verification for this host
	Insecure bool `yaml:"insecure,omitempty" mapstructure:"insecure"`
}

// LoggingConfig holds log level and format
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" mapstructure:"level"`
	Format string `yaml:"format,omitempty" mapstructure:"format"`
}

// DefaultGlobalConfig returns a default global configuration
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Defaults: Defaults{
			User:           constants.DefaultUser,
			Port:           constants.DefaultPort,
			ConnectTimeout: constants.DefaultConnectTimeout,
			CloseGrace:     constants.DefaultCloseGrace,
		},
		Hosts: make(map[string]HostConfig),
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}
