package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/taskboard/internal/models"
	"github.com/baharkarakas/taskboard/internal/repository"
)

type auditLogsRepo struct{ pool *pgxpool.Pool }

func NewAuditLogs(pool *pgxpool.Pool) repository.AuditLogs { return &auditLogsRepo{pool: pool} }

// Create appends one entry. Entries are never updated; id and created_at come
// from the database.
func (r *auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO audit_logs (entity_type, entity_id, actor_id, action, details)
VALUES ($1, $2, $3, $4, $5)`,
		l.EntityType, l.EntityID, l.ActorID, l.Action, l.Details)
	return classify("audit_logs.create", err)
}
