// Package syncqueue is a durable outbox for mutations that must eventually
// reach the remote store. Entries survive restarts, are deduplicated by
// idempotency key, and are retried with backoff until delivered.
package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type entryRow struct {
	bun.BaseModel `bun:"table:sync_queue"`

	ID             string `bun:"id,pk"`
	IdempotencyKey string `bun:"idempotency_key,notnull,unique"`
	Operation      string `bun:"operation,notnull"`
	Payload        string `bun:"payload,notnull"`
	Attempts       int    `bun:"attempts,notnull,default:0"`
	NextAttemptAt  int64  `bun:"next_attempt_at,notnull"`
	CreatedAt      int64  `bun:"created_at,notnull"`
}

// Entry is one queued mutation handed to the drain handler.
type Entry struct {
	ID             string
	IdempotencyKey string
	Operation      string
	Payload        json.RawMessage
	Attempts       int
}

// Handler applies one entry against the remote store. A nil return removes
// the entry; an error reschedules it with backoff.
type Handler func(ctx context.Context, e Entry) error

type Queue struct {
	db          *bun.DB
	log         *slog.Logger
	now         func() time.Time
	maxAttempts int
	baseDelay   time.Duration
}

type Config struct {
	DB     *bun.DB
	Logger *slog.Logger
	Now    func() time.Time
	// MaxAttempts caps retries per entry; entries past the cap are dropped
	// with an error log. Zero means 8.
	MaxAttempts int
	// BaseDelay is the first retry delay, doubled per attempt. Zero means
	// 30 seconds.
	BaseDelay time.Duration
}

func New(cfg Config) *Queue {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 30 * time.Second
	}
	return &Queue{
		db:          cfg.DB,
		log:         cfg.Logger.With(slog.String("component", "syncqueue")),
		now:         cfg.Now,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
	}
}

func (q *Queue) Init(ctx context.Context) error {
	_, err := q.db.NewCreateTable().
		Model((*entryRow)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Enqueue records a mutation for later delivery. A second enqueue with the
// same idempotency key is a no-op, so retried callers never double-queue.
func (q *Queue) Enqueue(ctx context.Context, idempotencyKey, operation string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	row := entryRow{
		ID:             uuid.NewString(),
		IdempotencyKey: idempotencyKey,
		Operation:      operation,
		Payload:        string(raw),
		NextAttemptAt:  q.now().UnixMilli(),
		CreatedAt:      q.now().UnixMilli(),
	}
	_, err = q.db.NewInsert().
		Model(&row).
		On("CONFLICT (idempotency_key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

// Pending returns the number of queued entries.
func (q *Queue) Pending(ctx context.Context) (int, error) {
	return q.db.NewSelect().
		Model((*entryRow)(nil)).
		Count(ctx)
}

// Drain delivers every due entry through handler, oldest first. Failures are
// rescheduled with exponential backoff; entries past the attempt cap are
// dropped. Returns the number delivered.
func (q *Queue) Drain(ctx context.Context, handler Handler) (int, error) {
	now := q.now().UnixMilli()
	var rows []entryRow
	err := q.db.NewSelect().
		Model(&rows).
		Where("next_attempt_at <= ?", now).
		Order("created_at").
		Scan(ctx)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, row := range rows {
		err := handler(ctx, Entry{
			ID:             row.ID,
			IdempotencyKey: row.IdempotencyKey,
			Operation:      row.Operation,
			Payload:        json.RawMessage(row.Payload),
			Attempts:       row.Attempts,
		})
		if err == nil {
			if _, derr := q.db.NewDelete().
				Model((*entryRow)(nil)).
				Where("id = ?", row.ID).
				Exec(ctx); derr != nil {
				return delivered, derr
			}
			delivered++
			continue
		}

		row.Attempts++
		if row.Attempts >= q.maxAttempts {
			q.log.Error("sync entry dropped after max attempts",
				slog.String("operation", row.Operation),
				slog.String("key", row.IdempotencyKey),
				slog.Any("err", err))
			if _, derr := q.db.NewDelete().
				Model((*entryRow)(nil)).
				Where("id = ?", row.ID).
				Exec(ctx); derr != nil {
				return delivered, derr
			}
			continue
		}

		delay := q.baseDelay << (row.Attempts - 1)
		q.log.Warn("sync entry delivery failed",
			slog.String("operation", row.Operation),
			slog.Int("attempts", row.Attempts),
			slog.Duration("retry_in", delay),
			slog.Any("err", err))
		if _, uerr := q.db.NewUpdate().
			Model((*entryRow)(nil)).
			Set("attempts = ?", row.Attempts).
			Set("next_attempt_at = ?", q.now().Add(delay).UnixMilli()).
			Where("id = ?", row.ID).
			Exec(ctx); uerr != nil {
			return delivered, uerr
		}
	}
	return delivered, nil
}

// RunDrainLoop drains once per interval until ctx is cancelled.
func (q *Queue) RunDrainLoop(ctx context.Context, interval time.Duration, handler Handler) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := q.Drain(ctx, handler); err != nil {
				q.log.Error("queue drain failed", slog.Any("err", err))
			}
		case <-ctx.Done():
			return
		}
	}
}
