package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/taskboard/internal/apperr"
	"github.com/baharkarakas/taskboard/internal/models"
	"github.com/baharkarakas/taskboard/internal/repository"
)

type usersRepo struct{ pool *pgxpool.Pool }

func NewUsers(pool *pgxpool.Pool) repository.Users {
	return &usersRepo{pool: pool}
}

const userColumns = `id::text, name, email, password_hash, role, is_active, last_login, created_at, updated_at`

func (r *usersRepo) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx, `
INSERT INTO users (id, name, email, password_hash, role, is_active)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING `+userColumns,
		u.ID, u.Name, models.NormalizeEmail(u.Email), u.PasswordHash, string(u.Role), u.IsActive,
	)
	out, err := scanUser(row)
	return out, classify("users.create", err)
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	if !validIDs(id) {
		return models.User{}, apperr.ErrNotFound
	}
	out, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	return out, classify("users.get", err)
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	out, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email)=$1`, models.NormalizeEmail(email)))
	return out, classify("users.get_by_email", err)
}

func (r *usersRepo) List(ctx context.Context, includeInactive bool) ([]models.User, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+userColumns+`
  FROM users
 WHERE is_active OR $1
 ORDER BY created_at DESC`, includeInactive)
	if err != nil {
		return nil, classify("users.list", err)
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, classify("users.list", err)
		}
		out = append(out, u)
	}
	return out, classify("users.list", rows.Err())
}

func (r *usersRepo) SetActive(ctx context.Context, id string, active bool) error {
	if !validIDs(id) {
		return apperr.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active=$2, updated_at=now() WHERE id=$1`, id, active)
	if err != nil {
		return classify("users.set_active", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *usersRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login=$2 WHERE id=$1`, id, at)
	return classify("users.touch_last_login", err)
}

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	u.Role = models.Role(role)
	return u, err
}
