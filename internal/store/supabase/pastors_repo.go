package supabase

import (
	"context"
	"encoding/json"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/store"
)

type PastorRepo struct {
	db *supa.Client
}

func NewPastorRepo(db *supa.Client) *PastorRepo {
	return &PastorRepo{db: db}
}

func (r *PastorRepo) Insert(ctx context.Context, p domain.Pastor) (domain.Pastor, error) {
	data, _, err := r.db.From(pastorsTable).
		Insert(p, false, "", "representation", "").
		ExecuteWithContext(ctx)
	if err != nil {
		return domain.Pastor{}, mapError(err)
	}
	var rows []domain.Pastor
	if err := json.Unmarshal(data, &rows); err != nil {
		return domain.Pastor{}, err
	}
	if len(rows) == 0 {
		return domain.Pastor{}, store.ErrNotFound
	}
	return rows[0], nil
}

func (r *PastorRepo) GetByName(ctx context.Context, name string) (domain.Pastor, error) {
	data, _, err := r.db.From(pastorsTable).
		Select("*", "", false).
		Eq("nome", name).
		Single().
		ExecuteWithContext(ctx)
	if err != nil {
		return domain.Pastor{}, mapError(err)
	}
	var p domain.Pastor
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Pastor{}, err
	}
	return p, nil
}

func (r *PastorRepo) List(ctx context.Context) ([]domain.Pastor, error) {
	data, _, err := r.db.From(pastorsTable).
		Select("*", "", false).
		Order("nome", &postgrest.OrderOpts{Ascending: true}).
		ExecuteWithContext(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	var rows []domain.Pastor
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *PastorRepo) Delete(ctx context.Context, id string) error {
	_, _, err := r.db.From(pastorsTable).
		Delete("", "").
		Eq("id", id).
		ExecuteWithContext(ctx)
	return mapError(err)
}
