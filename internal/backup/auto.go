package backup

import (
	"context"
	"log/slog"
	"time"
)

// DefaultAutoInterval is used when the settings store has not supplied one.
const DefaultAutoInterval = 30 * time.Minute

// StartAuto begins periodic snapshotting. Calling it again restarts the
// timer with the new interval, which is how interval changes from the
// settings store take effect. A failed snapshot is logged and the timer
// keeps running.
func (s *Store) StartAuto(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultAutoInterval
	}

	s.mu.Lock()
	if s.stopAuto != nil {
		close(s.stopAuto)
	}
	stop := make(chan struct{})
	s.stopAuto = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.Create(ctx, ""); err != nil {
					s.log.Warn("automatic backup failed", slog.Any("err", err))
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	s.log.Info("automatic backup scheduled", slog.Duration("interval", interval))
}

// StopAuto cancels the periodic snapshotting, if running.
func (s *Store) StopAuto() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopAuto != nil {
		close(s.stopAuto)
		s.stopAuto = nil
	}
}
