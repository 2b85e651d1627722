// Package calendar mirrors appointments into the admin's Google Calendar.
// Sync is best-effort: callers treat failures as advisory and never roll back
// the appointment mutation that triggered them.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"agendapastoral/backend/internal/domain"
)

// ErrNotAuthorized reports that no OAuth token has been granted yet. Callers
// should surface the AuthURL so the admin can complete the consent flow.
var ErrNotAuthorized = errors.New("google calendar not authorized")

const (
	// EventDuration is the fixed length of a mirrored appointment event.
	EventDuration = 30 * time.Minute

	calendarID = "primary"
	tokenKey   = "google_calendar_token"
)

// TokenStorage persists the OAuth token across restarts. The local key-value
// area satisfies it.
type TokenStorage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

type GoogleSync struct {
	oauth   *oauth2.Config
	storage TokenStorage
	log     *slog.Logger
	loc     *time.Location

	mu    sync.Mutex
	token *oauth2.Token
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Storage      TokenStorage
	Logger       *slog.Logger
	Location     *time.Location
}

func NewGoogleSync(cfg Config) *GoogleSync {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &GoogleSync{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{gcal.CalendarEventsScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://accounts.google.com/o/oauth2/auth",
				TokenURL: "https://oauth2.googleapis.com/token",
			},
		},
		storage: cfg.Storage,
		log:     cfg.Logger.With(slog.String("component", "calendar")),
		loc:     cfg.Location,
	}
}

// AuthURL returns the consent URL the admin visits to grant access. Offline
// access is requested so a refresh token comes back with the grant.
func (g *GoogleSync) AuthURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the callback code for a token and persists it.
func (g *GoogleSync) Exchange(ctx context.Context, code string) error {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = token
	if err := g.persistToken(ctx, token); err != nil {
		g.log.Warn("token persistence failed", slog.Any("err", err))
	}
	g.log.Info("google calendar authorized")
	return nil
}

// Authorized reports whether a token is available.
func (g *GoogleSync) Authorized(ctx context.Context) bool {
	_, err := g.currentToken(ctx)
	return err == nil
}

// Revoke drops the stored token; subsequent syncs fail with ErrNotAuthorized.
func (g *GoogleSync) Revoke(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = nil
	if g.storage == nil {
		return nil
	}
	return g.storage.Remove(ctx, tokenKey)
}

// CreateEvent mirrors an appointment as a fixed-length event and returns the
// provider event id.
func (g *GoogleSync) CreateEvent(ctx context.Context, appt domain.Appointment) (string, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return "", err
	}
	ev, err := g.buildEvent(appt)
	if err != nil {
		return "", err
	}
	created, err := svc.Events.Insert(calendarID, ev).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return created.Id, nil
}

// UpdateEvent rewrites a previously mirrored event in place.
func (g *GoogleSync) UpdateEvent(ctx context.Context, eventID string, appt domain.Appointment) error {
	svc, err := g.service(ctx)
	if err != nil {
		return err
	}
	ev, err := g.buildEvent(appt)
	if err != nil {
		return err
	}
	if _, err := svc.Events.Update(calendarID, eventID, ev).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// DeleteEvent removes a previously mirrored event.
func (g *GoogleSync) DeleteEvent(ctx context.Context, eventID string) error {
	svc, err := g.service(ctx)
	if err != nil {
		return err
	}
	if err := svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (g *GoogleSync) buildEvent(appt domain.Appointment) (*gcal.Event, error) {
	start, err := time.ParseInLocation(
		domain.DateLayout+" "+domain.TimeLayout,
		appt.Date+" "+appt.Time,
		g.loc,
	)
	if err != nil {
		return nil, fmt.Errorf("parse appointment time: %w", err)
	}
	end := start.Add(EventDuration)

	description := fmt.Sprintf("Pastor: %s\nTelefone: %s", appt.PastorName, appt.Phone)
	if appt.Notes != "" {
		description += "\n\n" + appt.Notes
	}
	return &gcal.Event{
		Summary:     fmt.Sprintf("Agendamento: %s", appt.Name),
		Description: description,
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: g.loc.String()},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: g.loc.String()},
	}, nil
}

// service builds a calendar client over a self-refreshing token source. A
// refreshed token is persisted so the next restart picks it up.
func (g *GoogleSync) service(ctx context.Context) (*gcal.Service, error) {
	token, err := g.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	ts := g.oauth.TokenSource(ctx, token)
	fresh, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if fresh.AccessToken != token.AccessToken {
		g.mu.Lock()
		g.token = fresh
		if perr := g.persistToken(ctx, fresh); perr != nil {
			g.log.Warn("token persistence failed", slog.Any("err", perr))
		}
		g.mu.Unlock()
	}

	svc, err := gcal.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(fresh)))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, nil
}

func (g *GoogleSync) currentToken(ctx context.Context) (*oauth2.Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != nil {
		return g.token, nil
	}
	if g.storage == nil {
		return nil, ErrNotAuthorized
	}
	raw, ok, err := g.storage.Get(ctx, tokenKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("decode stored token: %w", err)
	}
	if token.RefreshToken == "" && !token.Valid() {
		return nil, ErrNotAuthorized
	}
	g.token = &token
	return g.token, nil
}

// persistToken is called with mu held.
func (g *GoogleSync) persistToken(ctx context.Context, token *oauth2.Token) error {
	if g.storage == nil {
		return nil
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return g.storage.Set(ctx, tokenKey, string(raw))
}
