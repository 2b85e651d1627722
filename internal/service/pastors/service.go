// Package pastors manages the bookable staff roster and its credentials.
package pastors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"agendapastoral/backend/internal/auth"
	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/store"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

type Service struct {
	repo store.PastorRepository
	log  *slog.Logger
}

type Config struct {
	Repo   store.PastorRepository
	Logger *slog.Logger
}

func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		repo: cfg.Repo,
		log:  cfg.Logger.With(slog.String("component", "pastors")),
	}
}

type CreateInput struct {
	Name       string
	Phone      string
	Credential string
}

// Create registers a pastor. The credential is hashed before it leaves this
// function; the plaintext is never persisted.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Pastor, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Pastor{}, &ValidationError{Field: "nome", Message: "is required"}
	}
	if in.Credential == "" {
		return domain.Pastor{}, &ValidationError{Field: "senha", Message: "is required"}
	}

	if _, err := s.repo.GetByName(ctx, name); err == nil {
		return domain.Pastor{}, store.ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.Pastor{}, store.Persistence("pastor lookup", err)
	}

	hash, err := auth.HashCredential(in.Credential)
	if err != nil {
		return domain.Pastor{}, fmt.Errorf("hash credential: %w", err)
	}

	created, err := s.repo.Insert(ctx, domain.Pastor{
		Name:           name,
		Phone:          strings.TrimSpace(in.Phone),
		CredentialHash: hash,
	})
	if err != nil {
		return domain.Pastor{}, store.Persistence("pastor create", err)
	}
	s.log.Info("pastor registered", slog.String("nome", created.Name))

	created.CredentialHash = ""
	return created, nil
}

// List returns the roster with credential hashes stripped.
func (s *Service) List(ctx context.Context) ([]domain.Pastor, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, store.Persistence("pastor list", err)
	}
	for i := range rows {
		rows[i].CredentialHash = ""
	}
	return rows, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return store.Persistence("pastor delete", err)
	}
	return nil
}

// Authenticate checks a pastor's claimed credential. Unknown names and wrong
// credentials both map to store.ErrInvalidCredentials so callers cannot probe
// the roster.
func (s *Service) Authenticate(ctx context.Context, name, credential string) (domain.Pastor, error) {
	p, err := s.repo.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Pastor{}, store.ErrInvalidCredentials
		}
		return domain.Pastor{}, store.Persistence("pastor lookup", err)
	}
	if err := auth.VerifyCredential(p.CredentialHash, credential); err != nil {
		if errors.Is(err, auth.ErrMismatch) || errors.Is(err, auth.ErrBadHashFormat) {
			return domain.Pastor{}, store.ErrInvalidCredentials
		}
		return domain.Pastor{}, err
	}
	p.CredentialHash = ""
	return p, nil
}
