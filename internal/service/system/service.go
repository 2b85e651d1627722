// Package system exposes the singleton operational configuration record and
// the admin credential check backed by it.
package system

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agendapastoral/backend/internal/auth"
	"agendapastoral/backend/internal/cache"
	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/store"
)

// CacheTag groups the cached config record for invalidation on update.
const CacheTag = "config"

const cacheKey = "config:system"

type Service struct {
	repo  store.ConfigRepository
	cache *cache.Cache[any]
	log   *slog.Logger
	now   func() time.Time
}

type Config struct {
	Repo   store.ConfigRepository
	Cache  *cache.Cache[any]
	Logger *slog.Logger
	Now    func() time.Time
}

func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		repo:  cfg.Repo,
		cache: cfg.Cache,
		log:   cfg.Logger.With(slog.String("component", "system")),
		now:   cfg.Now,
	}
}

// Get returns the operational config with the admin hash stripped. A missing
// record is not an error; callers get the zero value.
func (s *Service) Get(ctx context.Context) (domain.SystemConfig, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(cacheKey); ok {
			if cfg, ok := v.(domain.SystemConfig); ok {
				return cfg, nil
			}
		}
	}

	cfg, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SystemConfig{}, nil
		}
		return domain.SystemConfig{}, store.Persistence("config read", err)
	}
	cfg.AdminCredentialHash = ""

	if s.cache != nil {
		s.cache.Set(cacheKey, cfg, cache.SetOptions{Tags: []string{CacheTag}})
	}
	return cfg, nil
}

type UpdateInput struct {
	BusinessHours *string
	ContactInfo   *string
	PolicyText    *string
	// AdminCredential, when set, is hashed and replaces the stored admin
	// credential. The plaintext is never persisted.
	AdminCredential *string
}

// Update merges the provided fields over the stored record and persists it.
func (s *Service) Update(ctx context.Context, in UpdateInput) (domain.SystemConfig, error) {
	cfg, err := s.repo.Get(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.SystemConfig{}, store.Persistence("config read", err)
	}

	if in.BusinessHours != nil {
		cfg.BusinessHours = *in.BusinessHours
	}
	if in.ContactInfo != nil {
		cfg.ContactInfo = *in.ContactInfo
	}
	if in.PolicyText != nil {
		cfg.PolicyText = *in.PolicyText
	}
	if in.AdminCredential != nil {
		hash, err := auth.HashCredential(*in.AdminCredential)
		if err != nil {
			return domain.SystemConfig{}, err
		}
		cfg.AdminCredentialHash = hash
	}
	cfg.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	saved, err := s.repo.Upsert(ctx, cfg)
	if err != nil {
		return domain.SystemConfig{}, store.Persistence("config update", err)
	}
	if s.cache != nil {
		s.cache.DeleteByTags([]string{CacheTag})
	}
	s.log.Info("system config updated")

	saved.AdminCredentialHash = ""
	return saved, nil
}

// VerifyAdmin checks the claimed admin credential. A missing record or an
// unset hash means no admin is configured; both report invalid credentials.
func (s *Service) VerifyAdmin(ctx context.Context, credential string) error {
	cfg, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrInvalidCredentials
		}
		return store.Persistence("config read", err)
	}
	if cfg.AdminCredentialHash == "" {
		return store.ErrInvalidCredentials
	}
	if err := auth.VerifyCredential(cfg.AdminCredentialHash, credential); err != nil {
		if errors.Is(err, auth.ErrMismatch) || errors.Is(err, auth.ErrBadHashFormat) {
			return store.ErrInvalidCredentials
		}
		return err
	}
	return nil
}
