package config

import (
	"fmt"
	"strings"

	"github.com/yoanbernabeu/sshinvoke/internal/security"
	"github.com/yoanbernabeu/sshinvoke/internal/ssh"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors holds multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// ValidateGlobalConfig validates defaults, logging and every host alias
func ValidateGlobalConfig(config *GlobalConfig) ValidationErrors {
	var errors ValidationErrors

	if config.Defaults.User != "" {
		if err := security.ValidateUsername(config.Defaults.User); err != nil {
			errors = append(errors, ValidationError{
				Field:   "defaults.user",
				Message: err.Error(),
			})
		}
	}

	if config.Defaults.Port < 0 || config.Defaults.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "defaults.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if config.Defaults.ConnectTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "defaults.connect_timeout",
			Message: "connect_timeout cannot be negative",
		})
	}

	if config.Defaults.ExecTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "defaults.exec_timeout",
			Message: "exec_timeout cannot be negative",
		})
	}

	if config.Defaults.CloseGrace < 0 {
		errors = append(errors, ValidationError{
			Field:   "defaults.close_grace",
			Message: "close_grace cannot be negative",
		})
	}

	switch config.Logging.Format {
	case "", "console", "json":
	default:
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "unsupported log format (use console or json)",
		})
	}

	for _, name := range config.ListHosts() {
		if err := security.ValidateHostAlias(name); err != nil {
			errors = append(errors, ValidationError{
				Field:   "hosts." + name,
				Message: err.Error(),
			})
			continue
		}
		host := config.Hosts[name]
		for _, e := range ValidateHostConfig(&host) {
			e.Field = "hosts." + name + "." + e.Field
			errors = append(errors, e)
		}
	}

	return errors
}

// ValidateHostConfig validates a host configuration
func ValidateHostConfig(config *HostConfig) ValidationErrors {
	var errors ValidationErrors

	if config.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "host",
			Message: "host is required",
		})
	} else if err := security.ValidateHostname(config.Host); err != nil {
		errors = append(errors, ValidationError{
			Field:   "host",
			Message: err.Error(),
		})
	}

	if config.User != "" {
		if err := security.ValidateUsername(config.User); err != nil {
			errors = append(errors, ValidationError{
				Field:   "user",
				Message: err.Error(),
			})
		}
	}

	// 0 falls back to the default port
	if config.Port < 0 || config.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "port",
			Message: "port must be between 1 and 65535",
		})
	}

	if config.HostKey != "" {
		if _, err := ssh.ParsePublicKey(config.HostKey); err != nil {
			errors = append(errors, ValidationError{
				Field:   "host_key",
				Message: "host_key must be in authorized_keys format (algorithm base64-key)",
			})
		}
	}

	if config.HostKey != "" && config.Insecure {
		errors = append(errors, ValidationError{
			Field:   "insecure",
			Message: "insecure cannot be combined with a pinned host_key",
		})
	}

	return errors
}
