package config

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPHost        string
	HTTPPort        int
	ShutdownTimeout time.Duration
	LogLevel        string

	SupabaseURL string
	SupabaseKey string

	LocalDBPath string
	Timezone    string

	WebhookURL string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	CacheTTL           time.Duration
	CacheMaxEntries    int
	CacheSweepInterval time.Duration

	ReconcileInterval time.Duration
	PurgeInterval     time.Duration
	SyncDrainInterval time.Duration

	AutoBackupInterval time.Duration
	MaxBackups         int
}

func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AGENDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.addr", "")
	v.SetDefault("shutdown.timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.key", "")
	v.SetDefault("local.db_path", "agenda.db")
	v.SetDefault("timezone", "America/Sao_Paulo")
	v.SetDefault("webhook.url", "")
	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.redirect_url", "")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.sweep_interval", "1m")
	v.SetDefault("reconcile.interval", "1h")
	v.SetDefault("purge.interval", "24h")
	v.SetDefault("sync.drain_interval", "1m")
	v.SetDefault("backup.auto_interval", "30m")
	v.SetDefault("backup.max_backups", 10)

	_ = v.BindEnv("http.host", "AGENDA_HTTP_HOST", "HTTP_HOST")
	_ = v.BindEnv("http.port", "AGENDA_HTTP_PORT", "HTTP_PORT", "PORT")
	_ = v.BindEnv("http.addr", "AGENDA_HTTP_ADDR", "HTTP_ADDR")
	_ = v.BindEnv("shutdown.timeout", "AGENDA_SHUTDOWN_TIMEOUT", "SHUTDOWN_TIMEOUT")
	_ = v.BindEnv("log.level", "AGENDA_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("supabase.url", "AGENDA_SUPABASE_URL", "SUPABASE_URL")
	_ = v.BindEnv("supabase.key", "AGENDA_SUPABASE_KEY", "SUPABASE_SERVICE_ROLE_KEY")
	_ = v.BindEnv("local.db_path", "AGENDA_LOCAL_DB_PATH")
	_ = v.BindEnv("timezone", "AGENDA_TIMEZONE", "TZ")
	_ = v.BindEnv("webhook.url", "AGENDA_WEBHOOK_URL", "WEBHOOK_URL")
	_ = v.BindEnv("google.client_id", "AGENDA_GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_ID")
	_ = v.BindEnv("google.client_secret", "AGENDA_GOOGLE_CLIENT_SECRET", "GOOGLE_CLIENT_SECRET")
	_ = v.BindEnv("google.redirect_url", "AGENDA_GOOGLE_REDIRECT_URL")
	_ = v.BindEnv("cache.ttl", "AGENDA_CACHE_TTL")
	_ = v.BindEnv("cache.max_entries", "AGENDA_CACHE_MAX_ENTRIES")
	_ = v.BindEnv("cache.sweep_interval", "AGENDA_CACHE_SWEEP_INTERVAL")
	_ = v.BindEnv("reconcile.interval", "AGENDA_RECONCILE_INTERVAL")
	_ = v.BindEnv("purge.interval", "AGENDA_PURGE_INTERVAL")
	_ = v.BindEnv("sync.drain_interval", "AGENDA_SYNC_DRAIN_INTERVAL")
	_ = v.BindEnv("backup.auto_interval", "AGENDA_BACKUP_AUTO_INTERVAL")
	_ = v.BindEnv("backup.max_backups", "AGENDA_BACKUP_MAX_BACKUPS")

	durationKeys := []string{
		"shutdown.timeout",
		"cache.ttl",
		"cache.sweep_interval",
		"reconcile.interval",
		"purge.interval",
		"sync.drain_interval",
		"backup.auto_interval",
	}
	parsed := make(map[string]time.Duration, len(durationKeys))
	for _, key := range durationKeys {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, err
		}
		parsed[key] = d
	}

	if addr := strings.TrimSpace(v.GetString("http.addr")); addr != "" {
		host, portStr, err := net.SplitHostPort(addr)
		if err == nil {
			if host != "" {
				v.Set("http.host", host)
			}
			if port, err := strconv.Atoi(portStr); err == nil {
				v.Set("http.port", port)
			}
		}
	}

	return Config{
		HTTPHost:           strings.TrimSpace(v.GetString("http.host")),
		HTTPPort:           v.GetInt("http.port"),
		ShutdownTimeout:    parsed["shutdown.timeout"],
		LogLevel:           v.GetString("log.level"),
		SupabaseURL:        strings.TrimSpace(v.GetString("supabase.url")),
		SupabaseKey:        strings.TrimSpace(v.GetString("supabase.key")),
		LocalDBPath:        v.GetString("local.db_path"),
		Timezone:           v.GetString("timezone"),
		WebhookURL:         strings.TrimSpace(v.GetString("webhook.url")),
		GoogleClientID:     v.GetString("google.client_id"),
		GoogleClientSecret: v.GetString("google.client_secret"),
		GoogleRedirectURL:  v.GetString("google.redirect_url"),
		CacheTTL:           parsed["cache.ttl"],
		CacheMaxEntries:    v.GetInt("cache.max_entries"),
		CacheSweepInterval: parsed["cache.sweep_interval"],
		ReconcileInterval:  parsed["reconcile.interval"],
		PurgeInterval:      parsed["purge.interval"],
		SyncDrainInterval:  parsed["sync.drain_interval"],
		AutoBackupInterval: parsed["backup.auto_interval"],
		MaxBackups:         v.GetInt("backup.max_backups"),
	}, nil
}
