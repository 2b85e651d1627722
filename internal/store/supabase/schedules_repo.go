package supabase

import (
	"context"
	"encoding/json"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/store"
)

type ScheduleRepo struct {
	db *supa.Client
}

func NewScheduleRepo(db *supa.Client) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) Insert(ctx context.Context, w domain.AvailabilityWindow) (domain.AvailabilityWindow, error) {
	data, _, err := r.db.From(schedulesTable).
		Insert(w, false, "", "representation", "").
		ExecuteWithContext(ctx)
	if err != nil {
		return domain.AvailabilityWindow{}, mapError(err)
	}
	rows, err := decodeWindows(data)
	if err != nil {
		return domain.AvailabilityWindow{}, err
	}
	if len(rows) == 0 {
		return domain.AvailabilityWindow{}, store.ErrNotFound
	}
	return rows[0], nil
}

func (r *ScheduleRepo) List(ctx context.Context) ([]domain.AvailabilityWindow, error) {
	data, _, err := r.db.From(schedulesTable).
		Select("*", "", false).
		Order("data", &postgrest.OrderOpts{Ascending: true}).
		ExecuteWithContext(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return decodeWindows(data)
}

func (r *ScheduleRepo) ListByPastorDate(ctx context.Context, pastorName, date string) ([]domain.AvailabilityWindow, error) {
	data, _, err := r.db.From(schedulesTable).
		Select("*", "", false).
		Eq("pastor", pastorName).
		Eq("data", date).
		ExecuteWithContext(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return decodeWindows(data)
}

func (r *ScheduleRepo) Delete(ctx context.Context, id string) error {
	_, _, err := r.db.From(schedulesTable).
		Delete("", "").
		Eq("id", id).
		ExecuteWithContext(ctx)
	return mapError(err)
}

func (r *ScheduleRepo) DeleteExpired(ctx context.Context, before string) (int, error) {
	data, _, err := r.db.From(schedulesTable).
		Delete("representation", "").
		Lt("data", before).
		ExecuteWithContext(ctx)
	if err != nil {
		return 0, mapError(err)
	}
	rows, err := decodeWindows(data)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func decodeWindows(data []byte) ([]domain.AvailabilityWindow, error) {
	var rows []domain.AvailabilityWindow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
