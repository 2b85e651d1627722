package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HTTPHost != "0.0.0.0" || cfg.HTTPPort != 8080 {
		t.Errorf("addr = %s:%d", cfg.HTTPHost, cfg.HTTPPort)
	}
	if cfg.Timezone != "America/Sao_Paulo" {
		t.Errorf("timezone = %q", cfg.Timezone)
	}
	if cfg.AutoBackupInterval != 30*time.Minute {
		t.Errorf("auto backup interval = %v", cfg.AutoBackupInterval)
	}
	if cfg.MaxBackups != 10 {
		t.Errorf("max backups = %d", cfg.MaxBackups)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("cache ttl = %v", cfg.CacheTTL)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AGENDA_SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("AGENDA_SUPABASE_KEY", "service-key")
	t.Setenv("AGENDA_HTTP_PORT", "9000")
	t.Setenv("AGENDA_RECONCILE_INTERVAL", "15m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.SupabaseURL != "https://proj.supabase.co" {
		t.Errorf("supabase url = %q", cfg.SupabaseURL)
	}
	if cfg.SupabaseKey != "service-key" {
		t.Errorf("supabase key = %q", cfg.SupabaseKey)
	}
	if cfg.HTTPPort != 9000 {
		t.Errorf("port = %d", cfg.HTTPPort)
	}
	if cfg.ReconcileInterval != 15*time.Minute {
		t.Errorf("reconcile interval = %v", cfg.ReconcileInterval)
	}
}

func TestLoad_AddrSplitsHostPort(t *testing.T) {
	t.Setenv("AGENDA_HTTP_ADDR", "127.0.0.1:3000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HTTPHost != "127.0.0.1" || cfg.HTTPPort != 3000 {
		t.Errorf("addr = %s:%d", cfg.HTTPHost, cfg.HTTPPort)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("AGENDA_CACHE_TTL", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}
