package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMustLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "env: \"dev\"\nstorage_path: \"postgres://localhost/calendar\"\ncalendar:\n  grid_start_hour: 8\n  px_per_minute: 1.5\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg := MustLoad()

	if cfg.Env != "dev" {
		t.Errorf("env = %q, want dev", cfg.Env)
	}
	if cfg.GridStartHour != 8 || cfg.GridEndHour != 21 {
		t.Errorf("grid hours = %d-%d, want 8-21", cfg.GridStartHour, cfg.GridEndHour)
	}
	if cfg.PxPerMinute != 1.5 || cfg.MinHeightPx != 15 {
		t.Errorf("px per minute = %v, min height = %v, want 1.5 and 15", cfg.PxPerMinute, cfg.MinHeightPx)
	}
	if cfg.HTTPServer.Address != "localhost:8080" {
		t.Errorf("address = %q", cfg.HTTPServer.Address)
	}
	if cfg.LockTTL != 10*time.Second {
		t.Errorf("lock ttl = %s, want 10s", cfg.LockTTL)
	}
	if cfg.RefreshCron != "@every 5m" {
		t.Errorf("refresh cron = %q", cfg.RefreshCron)
	}
}
