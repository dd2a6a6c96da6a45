package config

import (
	"testing"
	"time"
)

func TestDefaultGlobalConfig(t *testing.T) {
	cfg := DefaultGlobalConfig()

	if cfg.Hosts == nil {
		t.Error("expected hosts map to be initialized")
	}

	if cfg.Defaults.Port != 22 {
		t.Errorf("expected default port 22, got %d", cfg.Defaults.Port)
	}

	if cfg.Defaults.User != "root" {
		t.Errorf("expected default user 'root', got %s", cfg.Defaults.User)
	}

	if cfg.Defaults.ConnectTimeout != 30*time.Second {
		t.Errorf("expected connect timeout 30s, got %s", cfg.Defaults.ConnectTimeout)
	}

	if cfg.Defaults.ExecTimeout != 0 {
		t.Errorf("expected no exec timeout by default, got %s", cfg.Defaults.ExecTimeout)
	}

	if errs := ValidateGlobalConfig(cfg); errs.HasErrors() {
		t.Errorf("default config should be valid, got %v", errs)
	}
}
