package supabase

import (
	"context"
	"encoding/json"

	supa "github.com/supabase-community/supabase-go"

	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/store"
)

// ConfigRepo reads and writes the singleton system configuration row.
type ConfigRepo struct {
	db *supa.Client
}

func NewConfigRepo(db *supa.Client) *ConfigRepo {
	return &ConfigRepo{db: db}
}

func (r *ConfigRepo) Get(ctx context.Context) (domain.SystemConfig, error) {
	data, _, err := r.db.From(configTable).
		Select("*", "", false).
		Limit(1, "").
		ExecuteWithContext(ctx)
	if err != nil {
		return domain.SystemConfig{}, mapError(err)
	}
	var rows []domain.SystemConfig
	if err := json.Unmarshal(data, &rows); err != nil {
		return domain.SystemConfig{}, err
	}
	if len(rows) == 0 {
		return domain.SystemConfig{}, store.ErrNotFound
	}
	return rows[0], nil
}

func (r *ConfigRepo) Upsert(ctx context.Context, cfg domain.SystemConfig) (domain.SystemConfig, error) {
	data, _, err := r.db.From(configTable).
		Insert(cfg, true, "id", "representation", "").
		ExecuteWithContext(ctx)
	if err != nil {
		return domain.SystemConfig{}, mapError(err)
	}
	var rows []domain.SystemConfig
	if err := json.Unmarshal(data, &rows); err != nil {
		return domain.SystemConfig{}, err
	}
	if len(rows) == 0 {
		return domain.SystemConfig{}, store.ErrNotFound
	}
	return rows[0], nil
}
