// Package store declares the repository contracts over the remote row store
// and the sentinel errors implementations map provider failures onto.
package store

import (
	"context"

	"agendapastoral/backend/internal/domain"
)

type AppointmentRepository interface {
	Insert(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetByID(ctx context.Context, id string) (domain.Appointment, error)
	List(ctx context.Context) ([]domain.Appointment, error)
	ListByDate(ctx context.Context, date string) ([]domain.Appointment, error)
	// Search is the advisory discovery filter (case-insensitive substring on
	// name, exact phone). Never used for the authoritative duplicate gate.
	Search(ctx context.Context, nameFragment, phone string) ([]domain.Appointment, error)
	Update(ctx context.Context, id string, fields map[string]any) (domain.Appointment, error)
	Delete(ctx context.Context, id string) error
}

// HistoryRepository archives terminal appointments. Insert returns
// ErrHistoryUnavailable when the collection is not provisioned; callers treat
// that as a reported no-op, not a failure.
type HistoryRepository interface {
	Insert(ctx context.Context, rec domain.HistoryRecord) error
	List(ctx context.Context) ([]domain.HistoryRecord, error)
}

type PastorRepository interface {
	Insert(ctx context.Context, p domain.Pastor) (domain.Pastor, error)
	GetByName(ctx context.Context, name string) (domain.Pastor, error)
	List(ctx context.Context) ([]domain.Pastor, error)
	Delete(ctx context.Context, id string) error
}

type ScheduleRepository interface {
	Insert(ctx context.Context, w domain.AvailabilityWindow) (domain.AvailabilityWindow, error)
	List(ctx context.Context) ([]domain.AvailabilityWindow, error)
	ListByPastorDate(ctx context.Context, pastorName, date string) ([]domain.AvailabilityWindow, error)
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes every window dated strictly before the given
	// calendar date and returns the number removed.
	DeleteExpired(ctx context.Context, before string) (int, error)
}

type ConfigRepository interface {
	Get(ctx context.Context) (domain.SystemConfig, error)
	Upsert(ctx context.Context, cfg domain.SystemConfig) (domain.SystemConfig, error)
}
