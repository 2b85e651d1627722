package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const storageKey = "user_settings"

// FieldError is one violated constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violated field; the update is rejected as a
// whole.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "invalid settings: " + strings.Join(parts, "; ")
}

type listener struct {
	id int
	fn func(Settings)
}

// Store holds the current settings, persists them through a Storage port and
// notifies listeners after every successful change.
type Store struct {
	mu        sync.Mutex
	storage   Storage
	current   Settings
	listeners []listener
	nextID    int
	validate  *validator.Validate
	log       *slog.Logger
}

// NewStore loads persisted settings (if any) and deep-merges them over the
// defaults, so a partial or older document still yields a complete object.
func NewStore(ctx context.Context, storage Storage, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{
		storage:  storage,
		current:  Defaults(),
		validate: validator.New(),
		log:      log.With(slog.String("component", "settings")),
	}

	raw, ok, err := storage.Get(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	if ok {
		var persisted map[string]any
		if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
			s.log.Warn("persisted settings unreadable, using defaults", slog.Any("err", err))
			return s, nil
		}
		merged, err := s.merge(persisted)
		if err != nil {
			s.log.Warn("persisted settings invalid, using defaults", slog.Any("err", err))
			return s, nil
		}
		s.current = merged
	}
	return s, nil
}

// Get returns a copy of the full settings object.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update deep-merges partial into the current settings (nested objects
// key-by-key, arrays and primitives replaced wholesale), validates the merged
// result and persists it. Validation or persistence failure leaves the stored
// settings untouched.
func (s *Store) Update(ctx context.Context, partial map[string]any) error {
	s.mu.Lock()
	merged, err := s.merge(partial)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.persistLocked(ctx, merged); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = merged
	toNotify := s.snapshotListenersLocked()
	s.mu.Unlock()

	s.notify(toNotify, merged)
	return nil
}

// Reset restores one category (json key) or, with an empty category,
// everything to defaults.
func (s *Store) Reset(ctx context.Context, category string) error {
	defaults := Defaults()

	s.mu.Lock()
	next := defaults
	if category != "" {
		currentMap, err := toMap(s.current)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		defaultMap, err := toMap(defaults)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		section, ok := defaultMap[category]
		if !ok {
			s.mu.Unlock()
			return &ValidationError{Fields: []FieldError{{Field: category, Message: "unknown settings category"}}}
		}
		currentMap[category] = section
		if err := fromMap(currentMap, &next); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	if err := s.persistLocked(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = next
	toNotify := s.snapshotListenersLocked()
	s.mu.Unlock()

	s.notify(toNotify, next)
	return nil
}

type exportDoc struct {
	SchemaVersion int      `json:"schemaVersion"`
	Settings      Settings `json:"settings"`
}

func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	doc := exportDoc{SchemaVersion: SchemaVersion, Settings: s.current}
	s.mu.Unlock()
	return json.MarshalIndent(doc, "", "  ")
}

// Import replaces the settings with an exported document after full
// validation.
func (s *Store) Import(ctx context.Context, data []byte) error {
	var doc exportDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return &ValidationError{Fields: []FieldError{{Field: "document", Message: "not a settings export: " + err.Error()}}}
	}
	if doc.SchemaVersion > SchemaVersion {
		return &ValidationError{Fields: []FieldError{{
			Field:   "schemaVersion",
			Message: fmt.Sprintf("version %d is newer than supported %d", doc.SchemaVersion, SchemaVersion),
		}}}
	}
	asMap, err := toMap(doc.Settings)
	if err != nil {
		return err
	}
	return s.Update(ctx, asMap)
}

// AddListener registers fn to be called with the full new settings after
// every successful update or reset, in registration order. The returned
// function unsubscribes.
func (s *Store) AddListener(fn func(Settings)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) merge(partial map[string]any) (Settings, error) {
	base, err := toMap(s.current)
	if err != nil {
		return Settings{}, err
	}
	deepMerge(base, partial)

	var merged Settings
	if err := fromMap(base, &merged); err != nil {
		return Settings{}, &ValidationError{Fields: []FieldError{{Field: "settings", Message: err.Error()}}}
	}
	if err := s.validate.Struct(merged); err != nil {
		return Settings{}, asFieldErrors(err)
	}
	return merged, nil
}

func (s *Store) persistLocked(ctx context.Context, v Settings) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, storageKey, string(raw)); err != nil {
		s.log.Error("settings persistence failed", slog.Any("err", err))
		return err
	}
	return nil
}

func (s *Store) snapshotListenersLocked() []listener {
	return append([]listener(nil), s.listeners...)
}

// notify calls listeners outside the lock; a panicking listener is logged and
// does not block the rest.
func (s *Store) notify(listeners []listener, v Settings) {
	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("settings listener panicked", slog.Any("panic", r))
				}
			}()
			l.fn(v)
		}()
	}
}

// deepMerge merges src into dst: nested maps recursively, everything else
// replaced wholesale.
func deepMerge(dst, src map[string]any) {
	for key, sv := range src {
		if sm, ok := sv.(map[string]any); ok {
			if dm, ok := dst[key].(map[string]any); ok {
				deepMerge(dm, sm)
				continue
			}
		}
		dst[key] = sv
	}
}

func toMap(v Settings) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(m map[string]any, out *Settings) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func asFieldErrors(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{Fields: []FieldError{{Field: "settings", Message: err.Error()}}}
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Namespace(),
			Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
		})
	}
	return out
}
