// Package backup snapshots appointments, pastors and user settings into the
// local sqlite database, independent of the remote backend, and restores,
// exports and imports those snapshots.
package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/uptrace/bun"

	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/settings"
	"agendapastoral/backend/internal/store"
)

// SchemaVersion tags snapshot payloads and exported files.
const SchemaVersion = 1

const DefaultMaxBackups = 10

// Bundle is the point-in-time state captured by one snapshot.
type Bundle struct {
	Appointments []domain.Appointment `json:"appointments"`
	Pastors      []domain.Pastor      `json:"pastors"`
	Settings     settings.Settings    `json:"settings"`
}

// Source gathers the current state to snapshot; Sink applies a restored
// bundle back onto the application.
type Source interface {
	Collect(ctx context.Context) (Bundle, error)
}

type Sink interface {
	Apply(ctx context.Context, b Bundle) error
}

type snapshotRow struct {
	bun.BaseModel `bun:"table:backups"`

	ID            int64     `bun:"id,pk,autoincrement"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	DeviceID      string    `bun:"device_id,notnull"`
	UserID        string    `bun:"user_id"`
	SchemaVersion int       `bun:"schema_version,notnull"`
	Payload       []byte    `bun:"payload,notnull"`
	Size          int       `bun:"size,notnull"`
}

// Meta describes one stored snapshot.
type Meta struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"deviceId"`
	UserID    string    `json:"userId,omitempty"`
	Size      int       `json:"size"`
}

type Store struct {
	db         *bun.DB
	source     Source
	sink       Sink
	deviceID   string
	maxBackups int
	now        func() time.Time
	log        *slog.Logger

	mu       sync.Mutex
	stopAuto chan struct{}
}

type Config struct {
	DB         *bun.DB
	Source     Source
	Sink       Sink
	DeviceID   string
	MaxBackups int
	Now        func() time.Time
	Logger     *slog.Logger
}

func NewStore(cfg Config) *Store {
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = DefaultMaxBackups
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		db:         cfg.DB,
		source:     cfg.Source,
		sink:       cfg.Sink,
		deviceID:   cfg.DeviceID,
		maxBackups: cfg.MaxBackups,
		now:        cfg.Now,
		log:        cfg.Logger.With(slog.String("component", "backup")),
	}
}

func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*snapshotRow)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Create gathers the current state, writes one immutable snapshot and prunes
// the oldest snapshots beyond the configured maximum.
func (s *Store) Create(ctx context.Context, userID string) (int64, error) {
	bundle, err := s.source.Collect(ctx)
	if err != nil {
		return 0, store.Persistence("backup collect", err)
	}
	raw, err := json.Marshal(bundle)
	if err != nil {
		return 0, store.Persistence("backup encode", err)
	}
	raw = compress(encrypt(raw))

	row := snapshotRow{
		CreatedAt:     s.now().UTC(),
		DeviceID:      s.deviceID,
		UserID:        userID,
		SchemaVersion: SchemaVersion,
		Payload:       raw,
		Size:          len(raw),
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return 0, store.Persistence("backup insert", err)
	}
	if err := s.prune(ctx); err != nil {
		s.log.Warn("backup prune failed", slog.Any("err", err))
	}
	return row.ID, nil
}

// Restore overwrites the application state with the snapshot's bundle.
func (s *Store) Restore(ctx context.Context, id int64) error {
	var row snapshotRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return store.ErrNotFound
		}
		return store.Persistence("backup read", err)
	}

	var bundle Bundle
	if err := json.Unmarshal(decrypt(decompress(row.Payload)), &bundle); err != nil {
		return store.Persistence("backup decode", err)
	}
	if err := s.sink.Apply(ctx, bundle); err != nil {
		return store.Persistence("backup apply", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]Meta, error) {
	var rows []snapshotRow
	err := s.db.NewSelect().
		Model(&rows).
		ExcludeColumn("payload").
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, store.Persistence("backup list", err)
	}
	out := make([]Meta, len(rows))
	for i, r := range rows {
		out[i] = Meta{ID: r.ID, Timestamp: r.CreatedAt, DeviceID: r.DeviceID, UserID: r.UserID, Size: r.Size}
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().
		Model((*snapshotRow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return store.Persistence("backup delete", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) prune(ctx context.Context) error {
	s.mu.Lock()
	keep := s.maxBackups
	s.mu.Unlock()

	var ids []int64
	err := s.db.NewSelect().
		Model((*snapshotRow)(nil)).
		Column("id").
		Order("created_at DESC").
		Scan(ctx, &ids)
	if err != nil {
		return err
	}
	if len(ids) <= keep {
		return nil
	}
	stale := ids[keep:]
	_, err = s.db.NewDelete().
		Model((*snapshotRow)(nil)).
		Where("id IN (?)", bun.In(stale)).
		Exec(ctx)
	return err
}

// SetMaxBackups adjusts the retention limit (driven by the settings store).
func (s *Store) SetMaxBackups(n int) {
	if n > 0 {
		s.mu.Lock()
		s.maxBackups = n
		s.mu.Unlock()
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// compress, decompress, encrypt and decrypt are reserved hooks; all four are
// identity today.
func compress(b []byte) []byte   { return b }
func decompress(b []byte) []byte { return b }
func encrypt(b []byte) []byte    { return b }
func decrypt(b []byte) []byte    { return b }
