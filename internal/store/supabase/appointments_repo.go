package supabase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/store"
)

type AppointmentRepo struct {
	db *supa.Client
}

func NewAppointmentRepo(db *supa.Client) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

func (r *AppointmentRepo) Insert(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	data, _, err := r.db.From(appointmentsTable).
		Insert(appt, false, "", "representation", "").
		ExecuteWithContext(ctx)
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	return firstAppointment(data)
}

func (r *AppointmentRepo) GetByID(ctx context.Context, id string) (domain.Appointment, error) {
	data, _, err := r.db.From(appointmentsTable).
		Select("*", "", false).
		Eq("id", id).
		Single().
		ExecuteWithContext(ctx)
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	var appt domain.Appointment
	if err := json.Unmarshal(data, &appt); err != nil {
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepo) List(ctx context.Context) ([]domain.Appointment, error) {
	data, _, err := r.db.From(appointmentsTable).
		Select("*", "", false).
		Order("data", &postgrest.OrderOpts{Ascending: true}).
		ExecuteWithContext(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return decodeAppointments(data)
}

func (r *AppointmentRepo) ListByDate(ctx context.Context, date string) ([]domain.Appointment, error) {
	data, _, err := r.db.From(appointmentsTable).
		Select("*", "", false).
		Eq("data", date).
		Order("horario", &postgrest.OrderOpts{Ascending: true}).
		ExecuteWithContext(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return decodeAppointments(data)
}

func (r *AppointmentRepo) Search(ctx context.Context, nameFragment, phone string) ([]domain.Appointment, error) {
	data, _, err := r.db.From(appointmentsTable).
		Select("*", "", false).
		Or(fmt.Sprintf("nome.ilike.*%s*,telefone.eq.%s", nameFragment, phone), "").
		ExecuteWithContext(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return decodeAppointments(data)
}

func (r *AppointmentRepo) Update(ctx context.Context, id string, fields map[string]any) (domain.Appointment, error) {
	data, _, err := r.db.From(appointmentsTable).
		Update(fields, "representation", "").
		Eq("id", id).
		ExecuteWithContext(ctx)
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	return firstAppointment(data)
}

func (r *AppointmentRepo) Delete(ctx context.Context, id string) error {
	_, _, err := r.db.From(appointmentsTable).
		Delete("", "").
		Eq("id", id).
		ExecuteWithContext(ctx)
	return mapError(err)
}

func decodeAppointments(data []byte) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func firstAppointment(data []byte) (domain.Appointment, error) {
	rows, err := decodeAppointments(data)
	if err != nil {
		return domain.Appointment{}, err
	}
	if len(rows) == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return rows[0], nil
}
