package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yoanbernabeu/sshinvoke/internal/config"
	"github.com/yoanbernabeu/sshinvoke/internal/logging"
	"github.com/yoanbernabeu/sshinvoke/internal/security"
)

var (
	// Version is set at build time
	Version = "dev"

	// Global flags
	verbose   bool
	cfgFile   string
	yesFlag   bool // CI/CD: never prompt
	logFormat string

	// globalCfg is loaded before any subcommand runs
	globalCfg *config.GlobalConfig
)

var rootCmd = &cobra.Command{
	Use:   "sshinvoke",
	Short: "Run a command on a remote host over SSH",
	Long: `sshinvoke runs a single script or command on a remote host over SSH,
streams its output as it is produced and kills it when it exceeds its
execution deadline.

Quick start:
  sshinvoke hostkey my-vps.com                      # Show the server key to pin
  sshinvoke hosts add prod deploy@my-vps.com --host-key "ssh-ed25519 AAAA..."
  sshinvoke run prod -t 5m -- ./maintenance.sh      # Run with a 5 minute deadline

Commands:
  run           Run a command on a remote host
  probe         Wait until a host accepts SSH and runs a command
  hostkey       Print the host key of a server
  hosts         Manage host aliases
  config        Inspect the global configuration

Environment Variables:
  SSHINVOKE_PASSWORD             Password used for authentication
  SSHINVOKE_HOST_KEY             Pinned server key (authorized_keys format)
  SSHINVOKE_KNOWN_HOSTS          known_hosts file used for host key checks
  SSHINVOKE_SKIP_HOST_KEY_CHECK  Skip host key verification (true/false)
  SSHINVOKE_DEFAULTS_*           Override config defaults (e.g. SSHINVOKE_DEFAULTS_USER)`,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize()
	},
}

// ExitError carries a process exit code without an error message of its own
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	PrintError("%v", err)
	return 1
}

// GetRootCmd returns the root command, used by the docs generator
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed logs")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.config/sshinvoke/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&yesFlag, "yes", "y", false, "Never prompt (CI/CD mode)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json (default from config)")

	rootCmd.SetVersionTemplate(`sshinvoke {{.Version}}
`)
}

// initialize loads the global config and sets up logging from it
func initialize() error {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load global config: %w", err)
	}
	globalCfg = cfg

	logCfg := logging.DefaultConfig()
	if cfg.Logging.Level != "" {
		logCfg.Level = cfg.Logging.Level
	}
	if cfg.Logging.Format != "" {
		logCfg.Format = cfg.Logging.Format
	}
	if logFormat != "" {
		logCfg.Format = logFormat
	}
	if verbose {
		logCfg.Level = "debug"
	}
	logging.Init(logCfg)

	return nil
}

// saveGlobalConfig writes cfg back to the file it was loaded from
func saveGlobalConfig(cfg *config.GlobalConfig) error {
	if cfgFile != "" {
		return config.SaveGlobalConfigTo(cfgFile, cfg)
	}
	return config.SaveGlobalConfig(cfg)
}

// IsVerbose returns true if verbose mode is enabled
func IsVerbose() bool {
	return verbose
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// IsYesMode returns true if --yes flag is set (CI/CD mode)
func IsYesMode() bool {
	return yesFlag
}

// PrintError prints a formatted error message
func PrintError(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "❌ "+msg+"\n", args...)
}

// PrintSuccess prints a success message
func PrintSuccess(msg string, args ...interface{}) {
	fmt.Printf("✅ "+msg+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(msg string, args ...interface{}) {
	fmt.Printf("ℹ️  "+msg+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "⚠️  "+msg+"\n", args...)
}

// PrintVerbose prints a message only in verbose mode
func PrintVerbose(msg string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "   "+msg+"\n", args...)
	}
}

// PrintVerboseCommand prints a command in verbose mode with sensitive values masked
func PrintVerboseCommand(command string) {
	if verbose {
		fmt.Fprintf(os.Stderr, "   Running: %s\n", security.SanitizeCommandForLog(command))
	}
}
