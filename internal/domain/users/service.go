package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"pharmabot/internal/platform/clock"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

const minUsernameLen = 3

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  clock.Now,
	}
}

type RegisterInput struct {
	// ID opcional: si el caller ya viene autenticado, el perfil queda ligado a su id.
	ID       string
	Username string
	Email    string
}

// Register crea un usuario. El username se normaliza a minúsculas.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	username := normalizeUsername(in.Username)
	if len(username) < minUsernameLen || strings.ContainsAny(username, " \t/") {
		return User{}, ErrInvalidInput
	}
	email := strings.TrimSpace(in.Email)
	if email != "" && !strings.Contains(email, "@") {
		return User{}, ErrInvalidInput
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}

	u := User{
		ID:        id,
		Username:  username,
		Email:     email,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return User{}, ErrInvalidInput
	}
	return s.repo.GetByUsername(ctx, username)
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
