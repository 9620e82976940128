package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eugenenazirov/spacing-calculator/internal/spacer"
	"github.com/eugenenazirov/spacing-calculator/internal/storage"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "STATE_BACKEND", "STATE_PATH", "LOG_LEVEL", "SPACERS",
		"AUTOSAVE_INTERVAL", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST"} {
		t.Setenv(key, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if len(cfg.Spacers) != 11 {
		t.Fatalf("expected built-in spacers, got %d", len(cfg.Spacers))
	}
	if cfg.StateBackend != storage.BackendFile || cfg.StatePath == "" {
		t.Fatalf("expected file backend with resolved path, got %s %q", cfg.StateBackend, cfg.StatePath)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("SPACERS", "A=0.5, B = 0.25")
	t.Setenv("STATE_BACKEND", "memory")
	t.Setenv("AUTOSAVE_INTERVAL", "1m")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Fatalf("expected overridden port, got %s", cfg.Port)
	}
	if len(cfg.Spacers) != 2 || cfg.Spacers[1].Name != "B" || cfg.Spacers[1].Thickness != 250_000 {
		t.Fatalf("unexpected spacers: %+v", cfg.Spacers)
	}
	if cfg.StateBackend != storage.BackendMemory || cfg.StatePath != "" {
		t.Fatalf("expected memory backend without path, got %s %q", cfg.StateBackend, cfg.StatePath)
	}
	if cfg.AutosaveInterval != time.Minute {
		t.Fatalf("unexpected autosave interval: %s", cfg.AutosaveInterval)
	}
}

func TestLoadYAMLAndCLIPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: "7100"
state_backend: sqlite
state_path: /tmp/spacers.db
log_level: debug
enable_request_logging: false
shutdown_grace_period: 3s
rate_limit:
  rps: 0
  burst: 0
spacers:
  - name: Shim
    thickness: "0.1"
  - name: Washer
    thickness: 0.0625
    enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	port := "7200"
	cfg, err := Load(&CLIOverrides{ConfigFile: path, Port: &port})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "7200" {
		t.Fatalf("expected CLI port to win, got %s", cfg.Port)
	}
	if cfg.StateBackend != storage.BackendSQLite || cfg.StatePath != "/tmp/spacers.db" {
		t.Fatalf("unexpected state settings: %s %q", cfg.StateBackend, cfg.StatePath)
	}
	if cfg.LogLevel != "debug" || cfg.EnableRequestLogging {
		t.Fatalf("unexpected logging settings: %q %v", cfg.LogLevel, cfg.EnableRequestLogging)
	}
	if cfg.ShutdownGracePeriod != 3*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
	if cfg.RateLimitRPS != 0 || cfg.RateLimitBurst != 0 {
		t.Fatalf("expected rate limiting disabled, got %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	want := []spacer.Definition{
		{Name: "Shim", Thickness: 100_000, Enabled: true},
		{Name: "Washer", Thickness: 62_500, Enabled: false},
	}
	if len(cfg.Spacers) != len(want) || cfg.Spacers[0] != want[0] || cfg.Spacers[1] != want[1] {
		t.Fatalf("unexpected spacers: %+v", cfg.Spacers)
	}
}

func TestLoadRejectsInvalidInput(t *testing.T) {
	clearEnv(t)

	backend := "etcd"
	if _, err := Load(&CLIOverrides{StateBackend: &backend}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}

	t.Setenv("SPACERS", "Shim=abc")
	if _, err := Load(nil); !errors.Is(err, spacer.ErrInvalidThickness) {
		t.Fatalf("expected ErrInvalidThickness from SPACERS, got %v", err)
	}
	t.Setenv("SPACERS", "")

	bad := "Shim=-1"
	if _, err := Load(&CLIOverrides{SpacersStr: &bad}); !errors.Is(err, spacer.ErrInvalidThickness) {
		t.Fatalf("expected ErrInvalidThickness, got %v", err)
	}

	grace := filepath.Join(t.TempDir(), "grace.yaml")
	if err := os.WriteFile(grace, []byte("shutdown_grace_period: 0s\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(&CLIOverrides{ConfigFile: grace}); err == nil {
		t.Fatalf("expected error for zero shutdown grace period")
	}

	if _, err := Load(&CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatalf("expected error for missing config file")
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("spacers:\n  - name: x\n    thickness: abc\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(&CLIOverrides{ConfigFile: path}); !errors.Is(err, spacer.ErrInvalidThickness) {
		t.Fatalf("expected ErrInvalidThickness from YAML spacers, got %v", err)
	}
}

func TestParseSpacers(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := parseSpacers("1/2 Nylon=0.5,Shim=0.0625,")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || got[0].Name != "1/2 Nylon" || got[1].Thickness != 62_500 || !got[1].Enabled {
			t.Fatalf("unexpected spacers: %+v", got)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, raw := range []string{" , ", "Shim", "=0.5", "Shim=abc"} {
			if _, err := parseSpacers(raw); err == nil {
				t.Fatalf("expected error for %q", raw)
			}
		}
	})
}
