package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/baharkarakas/taskboard/internal/repository"
)

func NewRepositories(pool *pgxpool.Pool) repo.Repositories {
	return repo.Repositories{
		Users:     NewUsers(pool),
		Tasks:     NewTasks(pool),
		AuditLogs: NewAuditLogs(pool),
		Pinger:    pinger{pool},
	}
}

type pinger struct{ pool *pgxpool.Pool }

func (p pinger) Ping(ctx context.Context) error { return classify("ping", p.pool.Ping(ctx)) }
