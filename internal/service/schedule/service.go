// Package schedule manages pastor availability windows ("escalas") and
// answers which slots remain bookable on a date.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"agendapastoral/backend/internal/availability"
	"agendapastoral/backend/internal/cache"
	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/store"
)

// CacheTag marks cached schedule reads; window mutations invalidate it.
const CacheTag = "escalas"

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationError(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

type Service struct {
	repo  store.ScheduleRepository
	appts store.AppointmentRepository
	cache *cache.Cache[any]
	log   *slog.Logger
	now   func() time.Time
	loc   *time.Location
}

type Config struct {
	Repo         store.ScheduleRepository
	Appointments store.AppointmentRepository
	Cache        *cache.Cache[any]
	Logger       *slog.Logger
	Now          func() time.Time
	Location     *time.Location
}

func NewService(cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		repo:  cfg.Repo,
		appts: cfg.Appointments,
		cache: cfg.Cache,
		log:   cfg.Logger.With(slog.String("component", "schedule")),
		now:   cfg.Now,
		loc:   cfg.Location,
	}
}

type CreateInput struct {
	PastorID    string
	PastorName  string
	Date        string
	StartTime   string
	EndTime     string
	SlotMinutes int
	LunchStart  string
	LunchEnd    string
}

// Create adds one availability window. A second window for the same pastor
// and date is rejected with store.ErrDuplicateSchedule.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.AvailabilityWindow, error) {
	if in.PastorName == "" {
		return domain.AvailabilityWindow{}, validationError("pastor is required")
	}
	if err := availability.ValidateDate(in.Date); err != nil {
		return domain.AvailabilityWindow{}, validationError("data must be YYYY-MM-DD")
	}
	start, err := availability.ParseClock(in.StartTime)
	if err != nil {
		return domain.AvailabilityWindow{}, validationError("hora_inicio must be HH:MM")
	}
	end, err := availability.ParseClock(in.EndTime)
	if err != nil {
		return domain.AvailabilityWindow{}, validationError("hora_fim must be HH:MM")
	}
	if end <= start {
		return domain.AvailabilityWindow{}, validationError("hora_fim must be after hora_inicio")
	}
	if (in.LunchStart == "") != (in.LunchEnd == "") {
		return domain.AvailabilityWindow{}, validationError("lunch break needs both start and end")
	}
	if in.SlotMinutes < 0 {
		return domain.AvailabilityWindow{}, validationError("duracao_slot must be positive")
	}

	existing, err := s.repo.ListByPastorDate(ctx, in.PastorName, in.Date)
	if err != nil {
		return domain.AvailabilityWindow{}, store.Persistence("schedule duplicate check", err)
	}
	if len(existing) > 0 {
		return domain.AvailabilityWindow{}, store.ErrDuplicateSchedule
	}

	created, err := s.repo.Insert(ctx, domain.AvailabilityWindow{
		PastorID:    in.PastorID,
		PastorName:  in.PastorName,
		Date:        in.Date,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		SlotMinutes: in.SlotMinutes,
		LunchStart:  in.LunchStart,
		LunchEnd:    in.LunchEnd,
	})
	if err != nil {
		return domain.AvailabilityWindow{}, store.Persistence("schedule create", err)
	}
	s.invalidate()
	return created, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return validationError("id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return store.Persistence("schedule delete", err)
	}
	s.invalidate()
	return nil
}

// List purges expired windows first, then returns the remaining ones.
func (s *Service) List(ctx context.Context) ([]domain.AvailabilityWindow, error) {
	if _, err := s.PurgeExpired(ctx); err != nil {
		s.log.Warn("expired window purge failed", slog.Any("err", err))
	}

	const key = "escalas:list"
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if rows, ok := v.([]domain.AvailabilityWindow); ok {
				return rows, nil
			}
		}
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, store.Persistence("schedule list", err)
	}
	if s.cache != nil {
		s.cache.Set(key, rows, cache.SetOptions{Tags: []string{CacheTag}})
	}
	return rows, nil
}

// AvailableSlots resolves the free slots for one pastor on one date.
func (s *Service) AvailableSlots(ctx context.Context, pastorName, date string) ([]string, error) {
	if pastorName == "" {
		return nil, validationError("pastor is required")
	}
	if err := availability.ValidateDate(date); err != nil {
		return nil, validationError("data must be YYYY-MM-DD")
	}

	key := fmt.Sprintf("slots:%s:%s", pastorName, date)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if slots, ok := v.([]string); ok {
				return slots, nil
			}
		}
	}

	windows, err := s.repo.ListByPastorDate(ctx, pastorName, date)
	if err != nil {
		return nil, store.Persistence("schedule read", err)
	}
	booked, err := s.appts.ListByDate(ctx, date)
	if err != nil {
		return nil, store.Persistence("appointment read", err)
	}

	slots, err := availability.ComputeAvailableSlots(windows, booked, date)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(key, slots, cache.SetOptions{
			TTL:  time.Minute,
			Tags: []string{CacheTag, "agendamentos"},
		})
	}
	return slots, nil
}

// PurgeExpired removes windows dated before today. Runs on each List and
// once daily from RunPurgeLoop.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	today := s.now().In(s.loc).Format(domain.DateLayout)
	n, err := s.repo.DeleteExpired(ctx, today)
	if err != nil {
		return 0, store.Persistence("schedule purge", err)
	}
	if n > 0 {
		s.invalidate()
		s.log.Info("expired availability windows purged", slog.Int("count", n))
	}
	return n, nil
}

// RunPurgeLoop purges once per interval until ctx is cancelled.
func (s *Service) RunPurgeLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := s.PurgeExpired(ctx); err != nil {
				s.log.Error("scheduled purge failed", slog.Any("err", err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.DeleteByTags([]string{CacheTag})
	}
}
