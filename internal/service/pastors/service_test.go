package pastors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"agendapastoral/backend/internal/auth"
	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/store"
)

type fakeRepo struct {
	insertFn    func(ctx context.Context, p domain.Pastor) (domain.Pastor, error)
	getByNameFn func(ctx context.Context, name string) (domain.Pastor, error)
	listFn      func(ctx context.Context) ([]domain.Pastor, error)
	deleteFn    func(ctx context.Context, id string) error
}

func (f *fakeRepo) Insert(ctx context.Context, p domain.Pastor) (domain.Pastor, error) {
	if f.insertFn == nil {
		panic("Insert not configured")
	}
	return f.insertFn(ctx, p)
}

func (f *fakeRepo) GetByName(ctx context.Context, name string) (domain.Pastor, error) {
	if f.getByNameFn == nil {
		return domain.Pastor{}, store.ErrNotFound
	}
	return f.getByNameFn(ctx, name)
}

func (f *fakeRepo) List(ctx context.Context) ([]domain.Pastor, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx)
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn == nil {
		panic("Delete not configured")
	}
	return f.deleteFn(ctx, id)
}

func TestCreate_HashesCredential(t *testing.T) {
	var stored domain.Pastor
	repo := &fakeRepo{
		insertFn: func(ctx context.Context, p domain.Pastor) (domain.Pastor, error) {
			stored = p
			p.ID = "p1"
			return p, nil
		},
	}
	svc := NewService(Config{Repo: repo})

	created, err := svc.Create(context.Background(), CreateInput{
		Name: "  João Oliveira  ", Phone: "11 91111-2222", Credential: "segredo",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if stored.Name != "João Oliveira" {
		t.Errorf("stored name = %q, want trimmed", stored.Name)
	}
	if stored.CredentialHash == "segredo" || !strings.HasPrefix(stored.CredentialHash, "$argon2id$") {
		t.Errorf("credential not hashed: %q", stored.CredentialHash)
	}
	if err := auth.VerifyCredential(stored.CredentialHash, "segredo"); err != nil {
		t.Errorf("stored hash does not verify: %v", err)
	}
	if created.CredentialHash != "" {
		t.Errorf("returned pastor leaks hash")
	}
}

func TestCreate_RejectsExistingName(t *testing.T) {
	repo := &fakeRepo{
		getByNameFn: func(ctx context.Context, name string) (domain.Pastor, error) {
			return domain.Pastor{ID: "p1", Name: name}, nil
		},
	}
	svc := NewService(Config{Repo: repo})

	_, err := svc.Create(context.Background(), CreateInput{Name: "João", Credential: "x"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(Config{Repo: &fakeRepo{}})

	for _, in := range []CreateInput{
		{Name: "   ", Credential: "x"},
		{Name: "João"},
	} {
		_, err := svc.Create(context.Background(), in)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("input %+v: error type = %T, want *ValidationError", in, err)
		}
	}
}

func TestList_StripsHashes(t *testing.T) {
	repo := &fakeRepo{
		listFn: func(ctx context.Context) ([]domain.Pastor, error) {
			return []domain.Pastor{
				{ID: "p1", Name: "João", CredentialHash: "$argon2id$..."},
				{ID: "p2", Name: "Marcos", CredentialHash: "$argon2id$..."},
			}, nil
		},
	}
	svc := NewService(Config{Repo: repo})

	rows, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	for _, p := range rows {
		if p.CredentialHash != "" {
			t.Errorf("pastor %s leaks hash", p.ID)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	hash, err := auth.HashCredential("segredo")
	if err != nil {
		t.Fatal(err)
	}
	repo := &fakeRepo{
		getByNameFn: func(ctx context.Context, name string) (domain.Pastor, error) {
			if name == "João" {
				return domain.Pastor{ID: "p1", Name: name, CredentialHash: hash}, nil
			}
			return domain.Pastor{}, store.ErrNotFound
		},
	}
	svc := NewService(Config{Repo: repo})

	p, err := svc.Authenticate(context.Background(), "João", "segredo")
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if p.ID != "p1" || p.CredentialHash != "" {
		t.Fatalf("pastor = %+v", p)
	}

	if _, err := svc.Authenticate(context.Background(), "João", "errado"); !errors.Is(err, store.ErrInvalidCredentials) {
		t.Fatalf("wrong credential: error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Authenticate(context.Background(), "Desconhecido", "segredo"); !errors.Is(err, store.ErrInvalidCredentials) {
		t.Fatalf("unknown name: error = %v, want ErrInvalidCredentials", err)
	}
}
