package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/taskboard/internal/models"
)

type AuditStorage struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func NewAuditStorage() *AuditStorage { return &AuditStorage{} }

func (s *AuditStorage) Create(_ context.Context, l models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = uuid.NewString()
	l.CreatedAt = time.Now()
	s.logs = append(s.logs, l)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (s *AuditStorage) Entries() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.logs...)
}
