package supabase

import (
	"context"
	"encoding/json"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"agendapastoral/backend/internal/domain"
)

// HistoryRepo archives terminal appointments. The table may not be
// provisioned on every deployment; mapError surfaces that as
// store.ErrHistoryUnavailable and callers degrade to a reported no-op.
type HistoryRepo struct {
	db *supa.Client
}

func NewHistoryRepo(db *supa.Client) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) Insert(ctx context.Context, rec domain.HistoryRecord) error {
	_, _, err := r.db.From(historyTable).
		Insert(rec, false, "", "", "").
		ExecuteWithContext(ctx)
	return mapError(err)
}

func (r *HistoryRepo) List(ctx context.Context) ([]domain.HistoryRecord, error) {
	data, _, err := r.db.From(historyTable).
		Select("*", "", false).
		Order("moved_to_history_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteWithContext(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	var rows []domain.HistoryRecord
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
