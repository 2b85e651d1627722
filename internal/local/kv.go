package local

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
)

type kvRow struct {
	bun.BaseModel `bun:"table:kv_store"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}

// KV is a simple durable key-value area (settings, device id, sync status).
// It satisfies the storage port the settings store depends on.
type KV struct {
	db *bun.DB
}

func NewKV(db *bun.DB) *KV {
	return &KV{db: db}
}

func (s *KV) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*kvRow)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *KV) Get(ctx context.Context, key string) (string, bool, error) {
	var row kvRow
	err := s.db.NewSelect().
		Model(&row).
		Where("key = ?", key).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Value, true, nil
}

func (s *KV) Set(ctx context.Context, key, value string) error {
	row := kvRow{Key: key, Value: value}
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return err
}

func (s *KV) Remove(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().
		Model((*kvRow)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	return err
}

func (s *KV) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.NewSelect().
		Model((*kvRow)(nil)).
		Column("key").
		Order("key").
		Scan(ctx, &keys)
	if err != nil {
		return nil, err
	}
	return keys, nil
}
