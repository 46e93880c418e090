// Package memory is a process-local store with the same semantics as the
// postgres one. It backs tests and STORE_DRIVER=memory runs.
package memory

import (
	"context"

	repo "github.com/baharkarakas/taskboard/internal/repository"
)

func NewRepositories() repo.Repositories {
	return repo.Repositories{
		Users:     NewUserStorage(),
		Tasks:     NewTaskStorage(),
		AuditLogs: NewAuditStorage(),
		Pinger:    pinger{},
	}
}

type pinger struct{}

func (pinger) Ping(ctx context.Context) error { return ctx.Err() }
