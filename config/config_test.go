package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadReturnsDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FileLimit == nil || *cfg.FileLimit != 50 {
		t.Fatalf("expected default file_limit 50, got %v", cfg.FileLimit)
	}
	if cfg.Interval != 100*time.Millisecond {
		t.Fatalf("expected default interval 100ms, got %v", cfg.Interval)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session-defaults.yaml")
	content := "file_limit: 10\nlock_callbacks: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FileLimit == nil || *cfg.FileLimit != 10 {
		t.Fatalf("expected file_limit overridden to 10, got %v", cfg.FileLimit)
	}
	if !cfg.LockCallbacks {
		t.Fatalf("expected lock_callbacks overridden to true")
	}
	if cfg.Interval != 100*time.Millisecond {
		t.Fatalf("expected interval to keep its default, got %v", cfg.Interval)
	}
}
