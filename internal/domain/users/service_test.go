package users

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testRepo struct {
	byID       map[string]User
	byUsername map[string]string
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]User{}, byUsername: map[string]string{}}
}

func (r *testRepo) Create(ctx context.Context, u User) error {
	if _, ok := r.byUsername[u.Username]; ok {
		return ErrUsernameTaken
	}
	r.byID[u.ID] = u
	r.byUsername[u.Username] = u.ID
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (User, error) {
	u, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *testRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	id, ok := r.byUsername[username]
	if !ok {
		return User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func TestRegister_NormalizesAndLooksUp(t *testing.T) {
	svc := NewService(newTestRepo())
	fixed := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	u, err := svc.Register(context.Background(), RegisterInput{Username: "  Rahim ", Email: "rahim@example.com"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Username != "rahim" || u.ID == "" || !u.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected user: %+v", u)
	}

	got, err := svc.GetByUsername(context.Background(), "RAHIM")
	if err != nil || got.ID != u.ID {
		t.Fatalf("lookup by username failed: %+v %v", got, err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := NewService(newTestRepo())
	cases := []RegisterInput{
		{Username: "ab"},
		{Username: "has space"},
		{Username: "valid", Email: "not-an-email"},
	}
	for _, in := range cases {
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Register(%+v): expected ErrInvalidInput, got %v", in, err)
		}
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc := NewService(newTestRepo())
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterInput{Username: "karim"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Username: "Karim"}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	svc := NewService(newTestRepo())
	if _, err := svc.GetByID(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegister_BindsCallerID(t *testing.T) {
	svc := NewService(newTestRepo())
	u, err := svc.Register(context.Background(), RegisterInput{ID: "iam-42", Username: "nadia"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.ID != "iam-42" {
		t.Fatalf("expected caller id, got %s", u.ID)
	}
}
