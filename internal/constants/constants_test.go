package constants

import (
	"testing"
	"time"
)

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name     string
		baseDir  string
		expected string
	}{
		{"xdg config dir", "/home/alice/.config", "/home/alice/.config/sshinvoke/config.yaml"},
		{"relative dir", "conf", "conf/sshinvoke/config.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConfigPath(tt.baseDir)
			if got != tt.expected {
				t.Errorf("ConfigPath(%q) = %q, want %q", tt.baseDir, got, tt.expected)
			}
		})
	}
}

func TestEnvNames(t *testing.T) {
	if EnvPassword != "SSHINVOKE_PASSWORD" {
		t.Errorf("EnvPassword = %q, want SSHINVOKE_PASSWORD", EnvPassword)
	}
	if EnvSkipHostCheck != "SSHINVOKE_SKIP_HOST_KEY_CHECK" {
		t.Errorf("EnvSkipHostCheck = %q, want SSHINVOKE_SKIP_HOST_KEY_CHECK", EnvSkipHostCheck)
	}
}

func TestDefaults(t *testing.T) {
	if DefaultPort != 22 {
		t.Errorf("DefaultPort = %d, want 22", DefaultPort)
	}
	if DefaultConnectTimeout != 30*time.Second {
		t.Errorf("DefaultConnectTimeout = %v, want 30s", DefaultConnectTimeout)
	}
	if DefaultCloseGrace <= 0 {
		t.Errorf("DefaultCloseGrace must be positive, got %v", DefaultCloseGrace)
	}
}
