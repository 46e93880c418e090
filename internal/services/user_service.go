package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/baharkarakas/taskboard/internal/apperr"
	"github.com/baharkarakas/taskboard/internal/auth"
	"github.com/baharkarakas/taskboard/internal/models"
	repo "github.com/baharkarakas/taskboard/internal/repository"
	"github.com/baharkarakas/taskboard/internal/validate"
	"github.com/baharkarakas/taskboard/internal/worker"
)

const (
	nameMaxLen     = 50
	passwordMinLen = 6
	passwordMaxLen = 72
)

type UserService struct {
	r       repo.Users
	tm      *auth.TokenManager
	wp      *worker.Pool
	timeout time.Duration
	now     func() time.Time
}

func NewUserService(r repo.Users, tm *auth.TokenManager, wp *worker.Pool, timeout time.Duration) *UserService {
	return &UserService{r: r, tm: tm, wp: wp, timeout: timeout, now: time.Now}
}

func (s *UserService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in RegisterInput) Validate() error {
	var errs validate.Errs
	name := strings.TrimSpace(in.Name)
	if ef := validate.Required("name", name); ef != nil {
		errs.Add(ef)
	} else {
		errs.Add(validate.Length("name", name, 1, nameMaxLen))
	}
	if ef := validate.Required("email", in.Email); ef != nil {
		errs.Add(ef)
	} else {
		errs.Add(validate.Email("email", strings.TrimSpace(in.Email)))
	}
	switch {
	case len(in.Password) < passwordMinLen:
		errs.AddMsg("password", "password must be at least 6 characters")
	case len(in.Password) > passwordMaxLen:
		errs.AddMsg("password", "password must be at most 72 bytes")
	}
	return errs.Err()
}

// Register creates a regular user account and signs it in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, auth.TokenPair, error) {
	if err := in.Validate(); err != nil {
		return models.User{}, auth.TokenPair{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, auth.TokenPair{}, err
	}
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	u, err := s.r.Create(ctx, models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        models.NormalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         models.RoleUser,
		IsActive:     true,
	})
	if err != nil {
		return models.User{}, auth.TokenPair{}, storeErr("users.create", err)
	}
	pair, err := s.tm.GeneratePair(u.ID, u.Role)
	return u, pair, err
}

// Login checks credentials. Unknown email and wrong password are indistinguishable.
func (s *UserService) Login(ctx context.Context, email, password string) (models.User, auth.TokenPair, error) {
	var errs validate.Errs
	errs.Add(validate.Required("email", email))
	errs.Add(validate.Required("password", password))
	if err := errs.Err(); err != nil {
		return models.User{}, auth.TokenPair{}, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	u, err := s.r.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.User{}, auth.TokenPair{}, apperr.ErrUnauthenticated
	}
	if err != nil {
		return models.User{}, auth.TokenPair{}, storeErr("users.get_by_email", err)
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return models.User{}, auth.TokenPair{}, apperr.ErrUnauthenticated
	}
	if !u.IsActive {
		return models.User{}, auth.TokenPair{}, apperr.ErrInactive
	}

	pair, err := s.tm.GeneratePair(u.ID, u.Role)
	if err != nil {
		return models.User{}, auth.TokenPair{}, err
	}
	at := s.now()
	u.LastLogin = &at
	s.touchLastLogin(u.ID, at)
	return u, pair, nil
}

func (s *UserService) touchLastLogin(userID string, at time.Time) {
	job := func() {
		ctx, cancel := s.storeCtx(context.Background())
		defer cancel()
		if err := s.r.TouchLastLogin(ctx, userID, at); err != nil {
			slog.Warn("last login update failed", "user_id", userID, "err", err)
		}
	}
	if s.wp == nil {
		job()
		return
	}
	s.wp.Submit(job)
}

// Refresh exchanges a valid refresh token for a new pair, re-reading the
// account so deactivated users cannot refresh.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	p, err := s.tm.ParseRefresh(refreshToken)
	if err != nil {
		return auth.TokenPair{}, apperr.ErrUnauthenticated
	}
	u, err := s.activeUser(ctx, p.UserID)
	if err != nil {
		return auth.TokenPair{}, err
	}
	return s.tm.GeneratePair(u.ID, u.Role)
}

// Authenticate resolves a bearer access token into a principal. The role is
// taken from the stored account, not the token.
func (s *UserService) Authenticate(ctx context.Context, token string) (auth.Principal, error) {
	p, err := s.tm.ParseAccess(token)
	if err != nil {
		return auth.Principal{}, apperr.ErrUnauthenticated
	}
	u, err := s.activeUser(ctx, p.UserID)
	if err != nil {
		return auth.Principal{}, err
	}
	return auth.Principal{UserID: u.ID, Role: u.Role}, nil
}

func (s *UserService) activeUser(ctx context.Context, id string) (models.User, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	u, err := s.r.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.User{}, apperr.ErrUnauthenticated
	}
	if err != nil {
		return models.User{}, storeErr("users.get", err)
	}
	if !u.IsActive {
		return models.User{}, apperr.ErrUnauthenticated
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	u, err := s.r.GetByID(ctx, id)
	return u, storeErr("users.get", err)
}

// List is admin-only; inactive users are hidden unless asked for.
func (s *UserService) List(ctx context.Context, includeInactive bool) ([]models.User, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	users, err := s.r.List(ctx, includeInactive)
	return users, storeErr("users.list", err)
}

// Deactivate soft-deletes a user; the record and its tasks are retained.
func (s *UserService) Deactivate(ctx context.Context, id string) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return storeErr("users.set_active", s.r.SetActive(ctx, id, false))
}

// EnsureAdmin creates the bootstrap admin account unless the email is
// already registered. It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	in := RegisterInput{Name: name, Email: email, Password: password}
	if err := in.Validate(); err != nil {
		return false, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	_, err = s.r.Create(ctx, models.User{
		Name:         name,
		Email:        models.NormalizeEmail(email),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	})
	if errors.Is(err, apperr.ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("users.create", err)
	}
	return true, nil
}
