package repository

import (
	"context"
	"time"

	"github.com/baharkarakas/taskboard/internal/models"
)

// Users stores accounts. Emails are unique case-insensitively.
type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context, includeInactive bool) ([]models.User, error)
	SetActive(ctx context.Context, id string, active bool) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// Tasks stores tasks. Every read and write is scoped to an owner; a task held
// by another owner is reported as apperr.ErrNotFound.
type Tasks interface {
	// List returns one page of matching tasks and the total match count.
	List(ctx context.Context, ownerID string, q models.TaskQuery) ([]models.Task, int, error)
	GetByID(ctx context.Context, ownerID, id string) (models.Task, error)
	// Create persists t as given (id and timestamps set by the caller) and
	// returns the stored row.
	Create(ctx context.Context, t models.Task) (models.Task, error)
	// Update overwrites the mutable fields of t where id and owner match.
	Update(ctx context.Context, t models.Task) (models.Task, error)
	Delete(ctx context.Context, ownerID, id string) error
	// Stats aggregates the owner's tasks against a single reference time.
	Stats(ctx context.Context, ownerID string, now time.Time) (models.TaskStats, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}

// Pinger checks the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Repositories is the full store a backend provides.
type Repositories struct {
	Users     Users
	Tasks     Tasks
	AuditLogs AuditLogs
	Pinger    Pinger
}
