package security

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

var (
	// hostAliasRegex validates host alias names in the config file
	// Allows: letters, numbers, underscores, hyphens, dots
	// Length: 1-64 characters
	hostAliasRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_.-]{0,62}[a-zA-Z0-9])?$`)

	// usernameRegex validates remote login names
	// POSIX rules relaxed for uppercase and dots, which many servers accept
	// Length: 1-32 characters
	usernameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9._-]{0,31}$`)

	// hostnameLabelRegex validates one DNS label
	hostnameLabelRegex = regexp.MustCompile(`^[a-zA-Z0-9_]([a-zA-Z0-9_-]{0,61}[a-zA-Z0-9_])?$`)

	// sensitiveAssignRegex matches NAME= assignments whose value is a secret
	// (e.g. PGPASSWORD=, API_TOKEN=, AWS_SECRET_ACCESS_KEY=)
	sensitiveAssignRegex = regexp.MustCompile(`(?i)\b[a-z0-9_]*(password|passwd|secret|token|api_key|apikey)[a-z0-9_]*=`)
)

// ValidateHostAlias validates a host alias from the config file
func ValidateHostAlias(name string) error {
	if name == "" {
		return fmt.Errorf("host alias cannot be empty")
	}
	if len(name) > 64 {
		return fmt.Errorf("host alias too long (max 64 characters)")
	}
	if !hostAliasRegex.MatchString(name) {
		return fmt.Errorf("host alias must contain only letters, numbers, dots, underscores, and hyphens")
	}
	return nil
}

// ValidateUsername validates a remote login name
func ValidateUsername(user string) error {
	if user == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if len(user) > 32 {
		return fmt.Errorf("username too long (max 32 characters)")
	}
	if !usernameRegex.MatchString(user) {
		return fmt.Errorf("username must start with a letter or underscore, followed by letters, numbers, dots, underscores, or hyphens")
	}
	return nil
}

// ValidateHostname validates a DNS name or an IP address literal
func ValidateHostname(host string) error {
	if host == "" {
		return fmt.Errorf("hostname cannot be empty")
	}
	if net.ParseIP(strings.Trim(host, "[]")) != nil {
		return nil
	}
	if len(host) > 253 {
		return fmt.Errorf("hostname too long (max 253 characters)")
	}
	for _, label := range strings.Split(strings.TrimSuffix(host, "."), ".") {
		if !hostnameLabelRegex.MatchString(label) {
			return fmt.Errorf("invalid hostname %q", host)
		}
	}
	return nil
}

// ShellEscape escapes a string for safe use in shell commands by wrapping it
// in single quotes and escaping any internal single quotes using the POSIX
// pattern: ' → '\''
func ShellEscape(s string) string {
	// Replace single quotes with the POSIX escape sequence: end quote, escaped quote, start quote
	escaped := strings.ReplaceAll(s, "'", "'\\''")
	return "'" + escaped + "'"
}

// SanitizeCommandForLog masks sensitive values in commands before logging.
// This prevents secrets from leaking into verbose output or log files.
func SanitizeCommandForLog(cmd string) string {
	result := cmd

	// Mask NAME=value assignments, last match first so indexes stay valid
	matches := sensitiveAssignRegex.FindAllStringIndex(result, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		valueStart := matches[i][1]
		valueEnd := findValueEnd(result, valueStart)
		if valueEnd == valueStart {
			continue
		}
		result = result[:valueStart] + "****" + result[valueEnd:]
	}

	// Mask -p<password> pattern (MySQL password flag)
	result = maskMySQLPasswordFlag(result)

	return result
}

// findValueEnd finds where a shell value ends (handles quoted and unquoted values)
func findValueEnd(s string, start int) int {
	if start >= len(s) {
		return start
	}

	// Handle single-quoted value
	if s[start] == '\'' {
		end := strings.Index(s[start+1:], "'")
		if end == -1 {
			return len(s)
		}
		return start + end + 2
	}

	// Handle double-quoted value
	if s[start] == '"' {
		end := strings.Index(s[start+1:], "\"")
		if end == -1 {
			return len(s)
		}
		return start + end + 2
	}

	// Unquoted: find next whitespace
	for i := start; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == ';' {
			return i
		}
	}
	return len(s)
}

// maskMySQLPasswordFlag masks -p<password> patterns in commands
func maskMySQLPasswordFlag(cmd string) string {
	// Match -p followed by non-space characters (the password)
	result := cmd
	searchFrom := 0
	for {
		rel := strings.Index(result[searchFrom:], " -p")
		if rel == -1 {
			break
		}
		afterP := searchFrom + rel + 3
		if afterP >= len(result) {
			break
		}
		// -p followed by a space means separate argument (or a port), skip
		if result[afterP] == ' ' || result[afterP] == '-' {
			searchFrom = afterP
			continue
		}
		// Find end of password value
		valueEnd := afterP
		for valueEnd < len(result) && result[valueEnd] != ' ' && result[valueEnd] != '\t' {
			valueEnd++
		}
		result = result[:afterP] + "****" + result[valueEnd:]
		break // Only mask the first occurrence
	}
	return result
}
