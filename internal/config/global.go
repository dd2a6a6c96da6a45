package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yoanbernabeu/sshinvoke/internal/constants"
	"github.com/yoanbernabeu/sshinvoke/internal/security"
)

// GetGlobalConfigPath returns the path to the global config file
func GetGlobalConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return constants.ConfigPath(configDir), nil
}

// LoadGlobalConfig loads the global configuration from its default location
func LoadGlobalConfig() (*GlobalConfig, error) {
	return NewLoader().Load()
}

// SaveGlobalConfig saves the global configuration to its default location
func SaveGlobalConfig(config *GlobalConfig) error {
	path, err := GetGlobalConfigPath()
	if err != nil {
		return err
	}
	return SaveGlobalConfigTo(path, config)
}

// SaveGlobalConfigTo saves the global configuration to path
func SaveGlobalConfigTo(path string, config *GlobalConfig) error {
	dir := filepath.Dir(path)
	// SECURITY: Use 0700 to restrict directory access to owner only
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// SECURITY: Use 0600 to restrict file access to owner only (contains pinned host keys)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write global config: %w", err)
	}

	return nil
}

// normalizeAlias lowercases aliases, since keys read back through viper are
// case-insensitive
func normalizeAlias(name string) string {
	return strings.ToLower(name)
}

// GetHost retrieves a host configuration by alias
func (c *GlobalConfig) GetHost(name string) (*HostConfig, error) {
	host, ok := c.Hosts[normalizeAlias(name)]
	if !ok {
		return nil, fmt.Errorf("host '%s' not found", name)
	}
	return &host, nil
}

// AddHost adds a new host alias to the configuration
func (c *GlobalConfig) AddHost(name string, host HostConfig) error {
	if err := security.ValidateHostAlias(name); err != nil {
		return err
	}
	name = normalizeAlias(name)
	if c.Hosts == nil {
		c.Hosts = make(map[string]HostConfig)
	}
	if _, exists := c.Hosts[name]; exists {
		return fmt.Errorf("host '%s' already exists", name)
	}

	if host.Port == 0 {
		host.Port = c.Defaults.Port
		if host.Port == 0 {
			host.Port = constants.DefaultPort
		}
	}

	if errs := ValidateHostConfig(&host); errs.HasErrors() {
		return errs
	}

	c.Hosts[name] = host
	return nil
}

// RemoveHost removes a host alias from the configuration
func (c *GlobalConfig) RemoveHost(name string) error {
	name = normalizeAlias(name)
	if _, exists := c.Hosts[name]; !exists {
		return fmt.Errorf("host '%s' not found", name)
	}

	delete(c.Hosts, name)
	return nil
}

// ListHosts returns all host aliases, sorted
func (c *GlobalConfig) ListHosts() []string {
	names := make([]string, 0, len(c.Hosts))
	for name := range c.Hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the host configuration for an alias, or for a plain
// hostname when no alias matches. Missing user and port are filled from
// the defaults.
func (c *GlobalConfig) Resolve(nameOrHost string) HostConfig {
	host, ok := c.Hosts[normalizeAlias(nameOrHost)]
	if !ok {
		host = HostConfig{Host: nameOrHost}
	}
	if host.User == "" {
		host.User = c.Defaults.User
	}
	if host.Port == 0 {
		host.Port = c.Defaults.Port
	}
	if host.KnownHosts == "" {
		host.KnownHosts = c.Defaults.KnownHosts
	}
	return host
}
