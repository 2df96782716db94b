package main

import (
	"os"
	"path/filepath"
	"testing"

	"robotick/pkg/platform"
)

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.Engine.TickRateHz != defaultTickRateHz {
		t.Fatalf("unexpected tick rate: %v", cfg.Engine.TickRateHz)
	}
	if cfg.HTTP.Bind != defaultHTTPBind {
		t.Fatalf("unexpected http bind address: %q", cfg.HTTP.Bind)
	}
	if cfg.Platform.Class != platform.ClassDesktop {
		t.Fatalf("expected desktop platform default, got %q", cfg.Platform.Class)
	}
}

func TestLoadConfigAppliesFileOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	const contents = "engine:\n  tickRateHz: 100\nhttp:\n  bind: \":9200\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.Engine.TickRateHz != 100 {
		t.Fatalf("expected tick rate override, got %v", cfg.Engine.TickRateHz)
	}
	if cfg.HTTP.Bind != ":9200" {
		t.Fatalf("expected http bind override, got %q", cfg.HTTP.Bind)
	}
}

func TestLoadConfigEnvOverridesTakePrecedenceOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	const contents = "engine:\n  tickRateHz: 100\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	originalLookup := lookupEnv
	defer func() { lookupEnv = originalLookup }()
	lookupEnv = func(key string) (string, bool) {
		if key == envTickRateHz {
			return "200", true
		}
		return "", false
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.Engine.TickRateHz != 200 {
		t.Fatalf("expected env override to win, got %v", cfg.Engine.TickRateHz)
	}
}

func TestLoadConfigAppliesPlatformClassAndByteOverride(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	const contents = "platform:\n  class: embedded\n  maxBlackboardsBytes: 4096\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.Platform.Class != platform.ClassEmbedded {
		t.Fatalf("expected embedded platform class, got %q", cfg.Platform.Class)
	}
	if cfg.Platform.MaxBlackboardsBytes != 4096 {
		t.Fatalf("expected byte override to win, got %d", cfg.Platform.MaxBlackboardsBytes)
	}
	if !cfg.Platform.SyncedWorkerAffinityEnabled {
		t.Fatal("expected embedded class defaults to still apply alongside the byte override")
	}
}

func TestLoadConfigRejectsUnreadableFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := loadConfig(dir); err == nil {
		t.Fatal("expected error reading a directory as a config file")
	}
}
