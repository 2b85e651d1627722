package backup

import (
	"context"
	"encoding/json"
	"log/slog"

	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/settings"
)

// AppointmentLister and PastorLister are the read surfaces AppState snapshots
// from. The appointment and pastor services satisfy them.
type AppointmentLister interface {
	List(ctx context.Context) ([]domain.Appointment, error)
}

type PastorLister interface {
	List(ctx context.Context) ([]domain.Pastor, error)
}

// AppState is the Source and Sink over the running application: snapshots
// collect from the live services when the remote store is reachable and fall
// back to the local mirror when it is not; restores write the local mirror
// and the settings store.
type AppState struct {
	appointments AppointmentLister
	pastors      PastorLister
	settings     *settings.Store
	mirror       settings.Storage
	log          *slog.Logger
}

type AppStateConfig struct {
	Appointments AppointmentLister
	Pastors      PastorLister
	Settings     *settings.Store
	Mirror       settings.Storage
	Logger       *slog.Logger
}

const (
	appointmentMirrorKey = "appointments"
	pastorMirrorKey      = "pastors"
)

func NewAppState(cfg AppStateConfig) *AppState {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AppState{
		appointments: cfg.Appointments,
		pastors:      cfg.Pastors,
		settings:     cfg.Settings,
		mirror:       cfg.Mirror,
		log:          cfg.Logger.With(slog.String("component", "appstate")),
	}
}

// Collect gathers the current appointments, pastors and settings. When the
// remote store is unreachable the last mirrored rows stand in, so a scheduled
// snapshot still captures something useful offline.
func (a *AppState) Collect(ctx context.Context) (Bundle, error) {
	var b Bundle

	appts, err := a.appointments.List(ctx)
	if err != nil {
		a.log.Warn("live appointment read failed, using mirror", slog.Any("err", err))
		appts, err = mirrorRead[domain.Appointment](ctx, a.mirror, appointmentMirrorKey)
		if err != nil {
			return Bundle{}, err
		}
	}
	b.Appointments = appts

	pastors, err := a.pastors.List(ctx)
	if err != nil {
		a.log.Warn("live pastor read failed, using mirror", slog.Any("err", err))
		pastors, err = mirrorRead[domain.Pastor](ctx, a.mirror, pastorMirrorKey)
		if err != nil {
			return Bundle{}, err
		}
	}
	b.Pastors = pastors

	if a.settings != nil {
		b.Settings = a.settings.Get()
	}
	return b, nil
}

// Apply writes a restored bundle onto the local mirror and the settings
// store. The remote store is left alone; the sync queue reconciles it.
func (a *AppState) Apply(ctx context.Context, b Bundle) error {
	if err := mirrorWrite(ctx, a.mirror, appointmentMirrorKey, b.Appointments); err != nil {
		return err
	}
	if err := mirrorWrite(ctx, a.mirror, pastorMirrorKey, b.Pastors); err != nil {
		return err
	}

	if a.settings != nil {
		var fields map[string]any
		raw, err := json.Marshal(b.Settings)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return err
		}
		if err := a.settings.Update(ctx, fields); err != nil {
			return err
		}
	}
	return nil
}

func mirrorRead[T any](ctx context.Context, storage settings.Storage, key string) ([]T, error) {
	if storage == nil {
		return nil, nil
	}
	raw, ok, err := storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var rows []T
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func mirrorWrite[T any](ctx context.Context, storage settings.Storage, key string, rows []T) error {
	if storage == nil {
		return nil
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return storage.Set(ctx, key, string(raw))
}
