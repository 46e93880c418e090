package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/taskboard/internal/apperr"
	"github.com/baharkarakas/taskboard/internal/lifecycle"
	"github.com/baharkarakas/taskboard/internal/metrics"
	"github.com/baharkarakas/taskboard/internal/models"
	repo "github.com/baharkarakas/taskboard/internal/repository"
	"github.com/baharkarakas/taskboard/internal/worker"
)

// TaskService is the owner-scoped task repository. Every method takes the
// owner id from the caller's principal and bounds each store call with the
// configured timeout.
type TaskService struct {
	tasks   repo.Tasks
	audit   repo.AuditLogs
	wp      *worker.Pool
	timeout time.Duration
	now     func() time.Time
}

func NewTaskService(t repo.Tasks, a repo.AuditLogs, wp *worker.Pool, timeout time.Duration) *TaskService {
	return &TaskService{tasks: t, audit: a, wp: wp, timeout: timeout, now: time.Now}
}

// Page is one slice of a list result plus the unpaginated match count.
type Page struct {
	Items []models.Task
	Total int
	Query models.TaskQuery
}

// ----------------- Helpers -----------------

func (s *TaskService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// storeErr keeps typed store errors intact and counts dependency failures.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	err = apperr.Dependency(op, err)
	if apperr.IsDependency(err) {
		metrics.StoreErrors.WithLabelValues(op).Inc()
	}
	return err
}

func (s *TaskService) record(actorID, taskID, action string, details map[string]any) {
	if s.audit == nil || s.wp == nil {
		return
	}
	entityID := taskID
	l := models.AuditLog{EntityType: "task", EntityID: &entityID, ActorID: actorID, Action: action, Details: details}
	s.wp.Submit(func() {
		ctx, cancel := s.storeCtx(context.Background())
		defer cancel()
		if err := s.audit.Create(ctx, l); err != nil {
			slog.Warn("audit write failed", "task_id", taskID, "action", action, "err", err)
		}
	})
}

// ----------------- Queries -----------------

func (s *TaskService) List(ctx context.Context, ownerID string, q models.TaskQuery) (Page, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	items, total, err := s.tasks.List(ctx, ownerID, q)
	if err != nil {
		return Page{}, storeErr("tasks.list", err)
	}
	return Page{Items: items, Total: total, Query: q}, nil
}

func (s *TaskService) Get(ctx context.Context, ownerID, id string) (models.Task, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	t, err := s.tasks.GetByID(ctx, ownerID, id)
	return t, storeErr("tasks.get", err)
}

// Stats captures now once so a task cannot change bucket mid-computation.
func (s *TaskService) Stats(ctx context.Context, ownerID string) (models.TaskStats, error) {
	now := s.now()
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	st, err := s.tasks.Stats(ctx, ownerID, now)
	return st, storeErr("tasks.stats", err)
}

// ----------------- Mutations -----------------

func (s *TaskService) Create(ctx context.Context, ownerID string, in models.TaskInput) (models.Task, error) {
	now := s.now()
	t, err := lifecycle.NewTask(ownerID, in, now)
	if err != nil {
		return models.Task{}, err
	}
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	out, err := s.tasks.Create(ctx, t)
	if err != nil {
		return models.Task{}, storeErr("tasks.create", err)
	}
	metrics.TaskOperations.WithLabelValues("create").Inc()
	s.record(ownerID, out.ID, "created", map[string]any{"status": string(out.Status)})
	return out, nil
}

// Update merges the patch into the owner's task and persists the whole row.
// Concurrent updates are last-write-wins; each persisted row is internally consistent.
func (s *TaskService) Update(ctx context.Context, ownerID, id string, p models.TaskPatch) (models.Task, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	prev, err := s.tasks.GetByID(ctx, ownerID, id)
	if err != nil {
		return models.Task{}, storeErr("tasks.get", err)
	}
	now := s.now()
	next, err := lifecycle.Apply(prev, p, now)
	if err != nil {
		return models.Task{}, err
	}
	next.UpdatedAt = now

	out, err := s.tasks.Update(ctx, next)
	if err != nil {
		return models.Task{}, storeErr("tasks.update", err)
	}
	metrics.TaskOperations.WithLabelValues("update").Inc()
	if prev.Status != out.Status {
		if out.Status == models.StatusCompleted {
			metrics.TaskOperations.WithLabelValues("complete").Inc()
		}
		s.record(ownerID, out.ID, "status_change", map[string]any{"from": string(prev.Status), "to": string(out.Status)})
	} else {
		s.record(ownerID, out.ID, "updated", nil)
	}
	return out, nil
}

func (s *TaskService) Delete(ctx context.Context, ownerID, id string) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.tasks.Delete(ctx, ownerID, id); err != nil {
		return storeErr("tasks.delete", err)
	}
	metrics.TaskOperations.WithLabelValues("delete").Inc()
	s.record(ownerID, id, "deleted", nil)
	return nil
}
