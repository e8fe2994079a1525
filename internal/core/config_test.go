package core

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 10s", cfg.Server.ReadTimeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.App.FloodLimitPerMinute != DefaultFloodLimitPerMinute {
		t.Errorf("App.FloodLimitPerMinute = %d, want %d", cfg.App.FloodLimitPerMinute, DefaultFloodLimitPerMinute)
	}
	if cfg.App.IncludeHiddenLinks {
		t.Error("App.IncludeHiddenLinks should default to false")
	}
	if cfg.Telegram.Enabled {
		t.Error("Telegram.Enabled should default to false")
	}
}
