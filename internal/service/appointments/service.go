// Package appointments orchestrates the appointment lifecycle: persistence
// through the remote store, cache invalidation, best-effort webhook and
// calendar notification, and the expiry reconciliation sweep.
package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"agendapastoral/backend/internal/availability"
	"agendapastoral/backend/internal/cache"
	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/notify"
	"agendapastoral/backend/internal/settings"
	"agendapastoral/backend/internal/store"
)

// CacheTag marks every cached appointment read; mutations invalidate it.
const CacheTag = "agendamentos"

const mirrorKey = "appointments"

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationError(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// DuplicateBookingError carries the records that block a new booking. The
// transport maps it to a conflict response; it is never retried.
type DuplicateBookingError struct {
	Conflicts []domain.Appointment
}

func (e *DuplicateBookingError) Error() string {
	return fmt.Sprintf("person already has %d booking(s) on that date", len(e.Conflicts))
}

// Notifier is the webhook boundary. Implementations swallow delivery
// failures; a lost notification never fails the mutation.
type Notifier interface {
	Notify(ctx context.Context, action notify.Action, appt domain.Appointment)
}

// CalendarSync mirrors appointments into a personal calendar, best-effort.
type CalendarSync interface {
	CreateEvent(ctx context.Context, appt domain.Appointment) (string, error)
	UpdateEvent(ctx context.Context, eventID string, appt domain.Appointment) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// Outbox defers mutations the remote store rejected transiently. Entries are
// deduplicated by idempotency key, so re-queuing a retried request is safe.
type Outbox interface {
	Enqueue(ctx context.Context, idempotencyKey, operation string, payload any) error
}

type Service struct {
	repo     store.AppointmentRepository
	history  store.HistoryRepository
	cache    *cache.Cache[any]
	notifier Notifier
	calendar CalendarSync
	mirror   settings.Storage
	outbox   Outbox
	log      *slog.Logger
	now      func() time.Time
	loc      *time.Location
}

type Config struct {
	Repo     store.AppointmentRepository
	History  store.HistoryRepository
	Cache    *cache.Cache[any]
	Notifier Notifier
	Calendar CalendarSync
	Mirror   settings.Storage
	Outbox   Outbox
	Logger   *slog.Logger
	Now      func() time.Time
	Location *time.Location
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
		repo:     cfg.Repo,
		history:  cfg.History,
		cache:    cfg.Cache,
		notifier: cfg.Notifier,
		calendar: cfg.Calendar,
		mirror:   cfg.Mirror,
		outbox:   cfg.Outbox,
		log:      cfg.Logger.With(slog.String("component", "appointments")),
		now:      cfg.Now,
		loc:      cfg.Location,
	}
}

type CreateInput struct {
	Name   string
	Phone  string
	Email  string
	Type   string
	Pastor string
	Date   string
	Time   string
	Notes  string
	Origin domain.Origin
}

// Create validates the request, blocks duplicate bookings for the same
// person on the same date with any pastor, persists the appointment and
// fires the side-effect notifications.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.Phone)
	if name == "" {
		return domain.Appointment{}, validationError("nome is required")
	}
	if phone == "" {
		return domain.Appointment{}, validationError("telefone is required")
	}
	if in.Date != "" {
		if err := availability.ValidateDate(in.Date); err != nil {
			return domain.Appointment{}, validationError("data must be YYYY-MM-DD")
		}
	}
	if in.Time != "" {
		if _, err := availability.ParseClock(in.Time); err != nil {
			return domain.Appointment{}, validationError("horario must be HH:MM")
		}
	}
	origin := in.Origin
	if origin == "" {
		origin = domain.OriginManual
	}
	if origin != domain.OriginManual && origin != domain.OriginAutomated {
		return domain.Appointment{}, validationError("origem %q is not recognized", origin)
	}

	if in.Date != "" {
		existing, err := s.repo.ListByDate(ctx, in.Date)
		if err != nil {
			return domain.Appointment{}, store.Persistence("appointment duplicate check", err)
		}
		if dup, conflicts := availability.HasDuplicateBooking(name, phone, in.Date, existing); dup {
			return domain.Appointment{}, &DuplicateBookingError{Conflicts: conflicts}
		}
	}

	appt := domain.Appointment{
		Name:       name,
		Phone:      phone,
		Email:      strings.TrimSpace(in.Email),
		Type:       in.Type,
		PastorName: in.Pastor,
		Date:       in.Date,
		Time:       in.Time,
		Notes:      in.Notes,
		Status:     domain.StatusPending,
		Origin:     origin,
	}
	stored, err := s.repo.Insert(ctx, appt)
	if err != nil {
		key := fmt.Sprintf("create:%s|%s|%s|%s", name, phone, in.Date, in.Time)
		s.deferMutation(ctx, key, "create", appt)
		return domain.Appointment{}, store.Persistence("appointment create", err)
	}

	s.invalidate()
	s.notify(ctx, notify.ActionCreate, stored)
	s.syncCalendar(ctx, stored)
	return stored, nil
}

// Update applies a partial change. When "status" is among the changed fields
// the webhook action is status_change, otherwise update.
func (s *Service) Update(ctx context.Context, id string, fields map[string]any) (domain.Appointment, error) {
	if id == "" {
		return domain.Appointment{}, validationError("id is required")
	}
	if len(fields) == 0 {
		return domain.Appointment{}, validationError("no fields to update")
	}
	if raw, ok := fields["status"]; ok {
		status, _ := raw.(string)
		if !domain.Status(status).Valid() {
			return domain.Appointment{}, validationError("status %q is not recognized", raw)
		}
	}

	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		s.deferMutation(ctx, "update:"+id, "update", map[string]any{"id": id, "fields": fields})
		return domain.Appointment{}, store.Persistence("appointment update", err)
	}

	s.invalidate()
	action := notify.ActionUpdate
	if _, ok := fields["status"]; ok {
		action = notify.ActionStatusChange
	}
	s.notify(ctx, action, updated)
	s.resyncCalendar(ctx, updated)
	return updated, nil
}

// Delete removes the appointment, sending the last-known record snapshot in
// the webhook since the row is gone afterwards.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return validationError("id is required")
	}
	snapshot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return store.Persistence("appointment read before delete", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.deferMutation(ctx, "delete:"+id, "delete", map[string]any{"id": id})
		return store.Persistence("appointment delete", err)
	}

	s.invalidate()
	s.notify(ctx, notify.ActionDelete, snapshot)
	s.dropCalendarEvent(ctx, snapshot)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	return appt, nil
}

// List reads all live appointments, through the cache, and mirrors the
// result to local durable storage for offline snapshots.
func (s *Service) List(ctx context.Context) ([]domain.Appointment, error) {
	const key = "agendamentos:list"
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if rows, ok := v.([]domain.Appointment); ok {
				return rows, nil
			}
		}
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, store.Persistence("appointment list", err)
	}
	if s.cache != nil {
		s.cache.Set(key, rows, cache.SetOptions{Tags: []string{CacheTag}})
	}
	s.mirrorRows(ctx, rows)
	return rows, nil
}

// Search is the advisory discovery filter used by admin screens. It never
// gates a booking; Create runs the authoritative exact-match check.
func (s *Service) Search(ctx context.Context, nameFragment, phone string) ([]domain.Appointment, error) {
	rows, err := s.repo.Search(ctx, nameFragment, phone)
	if err != nil {
		return nil, store.Persistence("appointment search", err)
	}
	return rows, nil
}

// MoveToHistory archives the appointment and deletes the live record. When
// the history collection is not provisioned it reports false without error.
func (s *Service) MoveToHistory(ctx context.Context, appt domain.Appointment, reason string) (bool, error) {
	rec := domain.HistoryRecord{
		Appointment:      appt,
		MovedToHistoryAt: s.now().UTC().Format(time.RFC3339),
		Reason:           reason,
	}
	if err := s.history.Insert(ctx, rec); err != nil {
		if errors.Is(err, store.ErrHistoryUnavailable) {
			s.log.Warn("history collection unavailable, skipping archive", slog.String("id", appt.ID))
			return false, nil
		}
		return false, store.Persistence("history insert", err)
	}
	if err := s.repo.Delete(ctx, appt.ID); err != nil {
		return false, store.Persistence("appointment delete after archive", err)
	}
	s.invalidate()
	return true, nil
}

// History lists archived appointments. An unprovisioned history collection
// reads as empty, matching MoveToHistory's no-op behavior.
func (s *Service) History(ctx context.Context) ([]domain.HistoryRecord, error) {
	recs, err := s.history.List(ctx)
	if err != nil {
		if errors.Is(err, store.ErrHistoryUnavailable) {
			return nil, nil
		}
		return nil, store.Persistence("history list", err)
	}
	return recs, nil
}

// ReconcileExpired transitions past-dated appointments (pending becomes
// not_attended, confirmed becomes attended) and archives every terminal
// appointment. Returns how many records were archived.
func (s *Service) ReconcileExpired(ctx context.Context) (int, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return 0, store.Persistence("appointment list", err)
	}

	for i, appt := range rows {
		if !appt.PastDate(s.now(), s.loc) {
			continue
		}
		var next domain.Status
		switch appt.Status {
		case domain.StatusConfirmed:
			next = domain.StatusAttended
		case domain.StatusPending:
			next = domain.StatusNotAttended
		default:
			continue
		}
		updated, err := s.repo.Update(ctx, appt.ID, map[string]any{"status": string(next)})
		if err != nil {
			s.log.Error("expiry transition failed", slog.String("id", appt.ID), slog.Any("err", err))
			continue
		}
		rows[i] = updated
		s.notify(ctx, notify.ActionStatusChange, updated)
	}

	moved := 0
	for _, appt := range rows {
		if !appt.Status.Terminal() {
			continue
		}
		ok, err := s.MoveToHistory(ctx, appt, "expired")
		if err != nil {
			s.log.Error("archive failed", slog.String("id", appt.ID), slog.Any("err", err))
			continue
		}
		if ok {
			moved++
		}
	}
	s.invalidate()
	return moved, nil
}

// RunReconcileLoop runs one sweep immediately and then once per interval
// until ctx is cancelled.
func (s *Service) RunReconcileLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if _, err := s.ReconcileExpired(ctx); err != nil {
		s.log.Error("reconcile sweep failed", slog.Any("err", err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := s.ReconcileExpired(ctx); err != nil {
				s.log.Error("reconcile sweep failed", slog.Any("err", err))
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

func (s *Service) notify(ctx context.Context, action notify.Action, appt domain.Appointment) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, action, appt)
	}
}

// syncCalendar mirrors a dated appointment into the personal calendar. The
// event id comes back on the stored row so later edits can find the event.
// Failures are logged; the mutation already succeeded.
func (s *Service) syncCalendar(ctx context.Context, appt domain.Appointment) {
	if s.calendar == nil || appt.Date == "" || appt.Time == "" {
		return
	}
	eventID, err := s.calendar.CreateEvent(ctx, appt)
	if err != nil {
		s.log.Warn("calendar sync failed", slog.String("id", appt.ID), slog.Any("err", err))
		return
	}
	if eventID == "" || appt.ID == "" {
		return
	}
	if _, err := s.repo.Update(ctx, appt.ID, map[string]any{"google_event_id": eventID}); err != nil {
		s.log.Warn("calendar event id not persisted", slog.String("id", appt.ID), slog.Any("err", err))
	}
}

// resyncCalendar pushes an already-mirrored appointment's changes to the
// calendar, or mirrors it for the first time when no event exists yet.
func (s *Service) resyncCalendar(ctx context.Context, appt domain.Appointment) {
	if s.calendar == nil {
		return
	}
	if appt.Date == "" || appt.Time == "" {
		return
	}
	if appt.EventID == "" {
		s.syncCalendar(ctx, appt)
		return
	}
	if err := s.calendar.UpdateEvent(ctx, appt.EventID, appt); err != nil {
		s.log.Warn("calendar resync failed", slog.String("id", appt.ID), slog.Any("err", err))
	}
}

func (s *Service) dropCalendarEvent(ctx context.Context, appt domain.Appointment) {
	if s.calendar == nil || appt.EventID == "" {
		return
	}
	if err := s.calendar.DeleteEvent(ctx, appt.EventID); err != nil {
		s.log.Warn("calendar event delete failed", slog.String("id", appt.ID), slog.Any("err", err))
	}
}

// deferMutation hands a failed mutation to the outbox so the drain loop can
// deliver it once the remote store is reachable again.
func (s *Service) deferMutation(ctx context.Context, key, operation string, payload any) {
	if s.outbox == nil {
		return
	}
	if err := s.outbox.Enqueue(ctx, key, operation, payload); err != nil {
		s.log.Error("outbox enqueue failed", slog.String("operation", operation), slog.Any("err", err))
		return
	}
	s.log.Info("mutation queued for retry", slog.String("operation", operation), slog.String("key", key))
}

func (s *Service) mirrorRows(ctx context.Context, rows []domain.Appointment) {
	if s.mirror == nil {
		return
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := s.mirror.Set(ctx, mirrorKey, string(raw)); err != nil {
		s.log.Warn("local mirror write failed", slog.Any("err", err))
	}
}
