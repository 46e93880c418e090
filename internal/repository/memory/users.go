package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/taskboard/internal/apperr"
	"github.com/baharkarakas/taskboard/internal/models"
)

type UserStorage struct {
	mu      sync.RWMutex
	users   map[string]models.User
	byEmail map[string]string // normalized email -> id
}

func NewUserStorage() *UserStorage {
	return &UserStorage{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
	}
}

func (s *UserStorage) Create(ctx context.Context, u models.User) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, apperr.Dependency("users.create", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = models.NormalizeEmail(u.Email)
	if _, taken := s.byEmail[u.Email]; taken {
		return models.User{}, apperr.ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return u, nil
}

func (s *UserStorage) GetByID(ctx context.Context, id string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, apperr.Dependency("users.get", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	return u, nil
}

func (s *UserStorage) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, apperr.Dependency("users.get_by_email", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	return s.users[id], nil
}

func (s *UserStorage) List(ctx context.Context, includeInactive bool) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Dependency("users.list", err)
	}
	s.mu.RLock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		if u.IsActive || includeInactive {
			out = append(out, u)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *UserStorage) SetActive(ctx context.Context, id string, active bool) error {
	if err := ctx.Err(); err != nil {
		return apperr.Dependency("users.set_active", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.IsActive = active
	u.UpdatedAt = time.Now()
	s.users[id] = u
	return nil
}

func (s *UserStorage) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return apperr.Dependency("users.touch_last_login", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.LastLogin = &at
	s.users[id] = u
	return nil
}
