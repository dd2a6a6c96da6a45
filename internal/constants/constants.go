package constants

import (
	"path/filepath"
	"time"
)

// Connection defaults
const (
	DefaultPort           = 22
	DefaultConnectTimeout = 30 * time.Second
	DefaultUser           = "root"
)

// Execution defaults
const (
	// DefaultCloseGrace bounds how long a killed command may keep its
	// channel open before the connection is torn down
	DefaultCloseGrace = 10 * time.Second
)

// Environment variables
const (
	EnvPrefix        = "SSHINVOKE"
	EnvPassword      = EnvPrefix + "_PASSWORD"
	EnvHostKey       = EnvPrefix + "_HOST_KEY"
	EnvKnownHosts    = EnvPrefix + "_KNOWN_HOSTS"
	EnvSkipHostCheck = EnvPrefix + "_SKIP_HOST_KEY_CHECK"
)

// Config file location
const (
	ConfigDirName  = "sshinvoke"
	ConfigFileName = "config.yaml"
)

// ConfigPath returns the config file path inside baseDir.
func ConfigPath(baseDir string) string {
	return filepath.Join(baseDir, ConfigDirName, ConfigFileName)
}
