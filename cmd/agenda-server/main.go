package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"agendapastoral/backend/internal/backup"
	"agendapastoral/backend/internal/cache"
	"agendapastoral/backend/internal/calendar"
	"agendapastoral/backend/internal/config"
	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/local"
	"agendapastoral/backend/internal/notify"
	"agendapastoral/backend/internal/service/appointments"
	"agendapastoral/backend/internal/service/pastors"
	"agendapastoral/backend/internal/service/schedule"
	"agendapastoral/backend/internal/service/system"
	"agendapastoral/backend/internal/settings"
	"agendapastoral/backend/internal/store/supabase"
	"agendapastoral/backend/internal/syncqueue"
	httpTransport "agendapastoral/backend/internal/transport/http"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "agenda-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "agenda-server"),
	)
	slog.SetDefault(log)

	if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
		log.Error("AGENDA_SUPABASE_URL and AGENDA_SUPABASE_KEY are required")
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Error("invalid timezone", slog.String("timezone", cfg.Timezone), slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	remote, err := supabase.Open(cfg.SupabaseURL, cfg.SupabaseKey)
	if err != nil {
		log.Error("supabase client failed", slog.Any("err", err))
		os.Exit(1)
	}

	db, err := local.Open(cfg.LocalDBPath)
	if err != nil {
		log.Error("local database open failed", slog.String("path", cfg.LocalDBPath), slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := local.Close(db); err != nil {
			log.Warn("local database close failed", slog.Any("err", err))
		}
	}()

	kv := local.NewKV(db)
	if err := kv.Init(ctx); err != nil {
		log.Error("local kv init failed", slog.Any("err", err))
		os.Exit(1)
	}
	deviceID, err := ensureDeviceID(ctx, kv)
	if err != nil {
		log.Error("device id init failed", slog.Any("err", err))
		os.Exit(1)
	}

	appCache := cache.New[any](cache.Config{
		DefaultTTL:    cfg.CacheTTL,
		MaxEntries:    cfg.CacheMaxEntries,
		SweepInterval: cfg.CacheSweepInterval,
		Logger:        log,
	})
	defer appCache.Stop()

	settingsStore, err := settings.NewStore(ctx, kv, log)
	if err != nil {
		log.Error("settings load failed", slog.Any("err", err))
		os.Exit(1)
	}

	var calendarSync *calendar.GoogleSync
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		calendarSync = calendar.NewGoogleSync(calendar.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Storage:      kv,
			Logger:       log,
			Location:     loc,
		})
	}

	apptRepo := supabase.NewAppointmentRepo(remote)
	outbox := syncqueue.New(syncqueue.Config{DB: db, Logger: log})
	if err := outbox.Init(ctx); err != nil {
		log.Error("sync queue init failed", slog.Any("err", err))
		os.Exit(1)
	}

	apptSvc := appointments.NewService(appointments.Config{
		Repo:     apptRepo,
		History:  supabase.NewHistoryRepo(remote),
		Cache:    appCache,
		Notifier: notify.NewWebhook(cfg.WebhookURL, &http.Client{Timeout: 10 * time.Second}, log),
		Calendar: calendarGate(calendarSync, settingsStore),
		Mirror:   kv,
		Outbox:   outbox,
		Logger:   log,
		Location: loc,
	})
	schedSvc := schedule.NewService(schedule.Config{
		Repo:         supabase.NewScheduleRepo(remote),
		Appointments: apptRepo,
		Cache:        appCache,
		Logger:       log,
		Location:     loc,
	})
	pastorSvc := pastors.NewService(pastors.Config{
		Repo:   supabase.NewPastorRepo(remote),
		Logger: log,
	})
	systemSvc := system.NewService(system.Config{
		Repo:   supabase.NewConfigRepo(remote),
		Cache:  appCache,
		Logger: log,
	})

	backupStore := backup.NewStore(backup.Config{
		DB: db,
		Source: backup.NewAppState(backup.AppStateConfig{
			Appointments: apptSvc,
			Pastors:      pastorSvc,
			Settings:     settingsStore,
			Mirror:       kv,
			Logger:       log,
		}),
		Sink: backup.NewAppState(backup.AppStateConfig{
			Appointments: apptSvc,
			Pastors:      pastorSvc,
			Settings:     settingsStore,
			Mirror:       kv,
			Logger:       log,
		}),
		DeviceID:   deviceID,
		MaxBackups: cfg.MaxBackups,
		Logger:     log,
	})
	if err := backupStore.Init(ctx); err != nil {
		log.Error("backup store init failed", slog.Any("err", err))
		os.Exit(1)
	}

	applyBackupSettings(ctx, backupStore, settingsStore.Get(), cfg.AutoBackupInterval)
	unsubscribe := settingsStore.AddListener(func(s settings.Settings) {
		applyBackupSettings(ctx, backupStore, s, 0)
	})
	defer unsubscribe()
	defer backupStore.StopAuto()

	go apptSvc.RunReconcileLoop(ctx, cfg.ReconcileInterval)
	go schedSvc.RunPurgeLoop(ctx, cfg.PurgeInterval)
	go outbox.RunDrainLoop(ctx, cfg.SyncDrainInterval, syncqueue.NewRemoteHandler(apptRepo))

	handlers := httpTransport.Handlers{
		Appointments: httpTransport.NewAppointmentsHandler(apptSvc, log),
		Schedule:     httpTransport.NewScheduleHandler(schedSvc, log),
		Pastors:      httpTransport.NewPastorsHandler(pastorSvc, log),
		System:       httpTransport.NewSystemHandler(systemSvc, log),
		Backups:      httpTransport.NewBackupsHandler(backupStore, log),
		Settings:     httpTransport.NewSettingsHandler(settingsStore, log),
	}
	if calendarSync != nil {
		handlers.Calendar = httpTransport.NewCalendarHandler(calendarSync, log)
	}

	addr := fmt.Sprintf("%s:%d", cfg.HTTPHost, cfg.HTTPPort)
	server := httpTransport.NewServer(addr, httpTransport.NewRouter(handlers), log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown failed", slog.Any("err", err))
		}
	case err := <-errCh:
		if err != nil {
			log.Error("http server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// ensureDeviceID reads the persistent device identity, minting one on first
// run so backups from this installation are distinguishable.
func ensureDeviceID(ctx context.Context, kv *local.KV) (string, error) {
	const key = "device_id"
	id, ok, err := kv.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := kv.Set(ctx, key, id); err != nil {
		return "", err
	}
	return id, nil
}

// applyBackupSettings maps the user's backup preferences onto the store. On
// startup initialInterval overrides the settings-derived one when shorter, so
// the first snapshot is not hours away.
func applyBackupSettings(ctx context.Context, store *backup.Store, s settings.Settings, initialInterval time.Duration) {
	store.SetMaxBackups(s.Backup.MaxBackups)
	if !s.Backup.AutoEnabled {
		store.StopAuto()
		return
	}
	interval := time.Duration(s.Backup.IntervalHours) * time.Hour
	if initialInterval > 0 && initialInterval < interval {
		interval = initialInterval
	}
	store.StartAuto(ctx, interval)
}

// calendarGate wraps the sync so the notifications.calendarEnabled setting is
// honored at call time, not wiring time.
func calendarGate(sync *calendar.GoogleSync, settingsStore *settings.Store) appointments.CalendarSync {
	if sync == nil {
		return nil
	}
	return &gatedCalendar{sync: sync, settings: settingsStore}
}

type gatedCalendar struct {
	sync     *calendar.GoogleSync
	settings *settings.Store
}

func (g *gatedCalendar) CreateEvent(ctx context.Context, appt domain.Appointment) (string, error) {
	if !g.settings.Get().Notifications.CalendarEnabled {
		return "", nil
	}
	return g.sync.CreateEvent(ctx, appt)
}

func (g *gatedCalendar) UpdateEvent(ctx context.Context, eventID string, appt domain.Appointment) error {
	if !g.settings.Get().Notifications.CalendarEnabled {
		return nil
	}
	return g.sync.UpdateEvent(ctx, eventID, appt)
}

func (g *gatedCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	if !g.settings.Get().Notifications.CalendarEnabled {
		return nil
	}
	return g.sync.DeleteEvent(ctx, eventID)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
