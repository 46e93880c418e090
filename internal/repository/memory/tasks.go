package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/taskboard/internal/apperr"
	"github.com/baharkarakas/taskboard/internal/models"
)

// TaskStorage keeps tasks in a map guarded by one RWMutex. Each write replaces
// a whole record, which is the single-document atomicity the services rely on.
type TaskStorage struct {
	mu    sync.RWMutex
	tasks map[string]models.Task
	seq   int64
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{tasks: make(map[string]models.Task)}
}

func (s *TaskStorage) List(ctx context.Context, ownerID string, q models.TaskQuery) ([]models.Task, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, apperr.Dependency("tasks.list", err)
	}
	s.mu.RLock()
	matched := make([]models.Task, 0)
	for _, t := range s.tasks {
		if t.OwnerID == ownerID && Matches(t, q) {
			matched = append(matched, clone(t))
		}
	}
	s.mu.RUnlock()

	SortTasks(matched, q.SortBy, q.SortOrder)

	total := len(matched)
	start := q.Offset()
	if start >= total {
		return []models.Task{}, total, nil
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *TaskStorage) GetByID(ctx context.Context, ownerID, id string) (models.Task, error) {
	if err := ctx.Err(); err != nil {
		return models.Task{}, apperr.Dependency("tasks.get", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return models.Task{}, apperr.ErrNotFound
	}
	return clone(t), nil
}

func (s *TaskStorage) Create(ctx context.Context, t models.Task) (models.Task, error) {
	if err := ctx.Err(); err != nil {
		return models.Task{}, apperr.Dependency("tasks.create", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.seq++
	t.Seq = s.seq
	t = clone(t)
	s.tasks[t.ID] = t
	return clone(t), nil
}

func (s *TaskStorage) Update(ctx context.Context, t models.Task) (models.Task, error) {
	if err := ctx.Err(); err != nil {
		return models.Task{}, apperr.Dependency("tasks.update", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tasks[t.ID]
	if !ok || cur.OwnerID != t.OwnerID {
		return models.Task{}, apperr.ErrNotFound
	}
	// owner, creation time and sequence are immutable
	t.OwnerID = cur.OwnerID
	t.CreatedAt = cur.CreatedAt
	t.Seq = cur.Seq
	t = clone(t)
	s.tasks[t.ID] = t
	return clone(t), nil
}

func (s *TaskStorage) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return apperr.Dependency("tasks.delete", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return apperr.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

// Stats folds over a single scan of the owner's tasks.
func (s *TaskStorage) Stats(ctx context.Context, ownerID string, now time.Time) (models.TaskStats, error) {
	var st models.TaskStats
	if err := ctx.Err(); err != nil {
		return st, apperr.Dependency("tasks.stats", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.OwnerID == ownerID {
			st.Add(t, now)
		}
	}
	return st, nil
}

// Matches evaluates the list predicate (minus the owner constraint) for one task.
func Matches(t models.Task, q models.TaskQuery) bool {
	if q.Status != nil && t.Status != *q.Status {
		return false
	}
	if q.Priority != nil && t.Priority != *q.Priority {
		return false
	}
	if q.Tag != "" && !containsExact(t.Tags, q.Tag) {
		return false
	}
	if q.DueBefore != nil && (t.DueDate == nil || t.DueDate.After(*q.DueBefore)) {
		return false
	}
	if q.DueAfter != nil && (t.DueDate == nil || t.DueDate.Before(*q.DueAfter)) {
		return false
	}
	if q.Search != "" && !matchesSearch(t, q.Search) {
		return false
	}
	return true
}

func matchesSearch(t models.Task, term string) bool {
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(t.Title), term) || strings.Contains(strings.ToLower(t.Description), term) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

func containsExact(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SortTasks orders tasks by field and direction, breaking ties on insertion
// sequence in the same direction. Tasks without a due date sort last when
// ordering by due date.
func SortTasks(tasks []models.Task, by models.SortField, order models.SortOrder) {
	desc := order != models.SortAsc
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		c := compare(a, b, by)
		if by == models.SortDueDate && (a.DueDate == nil) != (b.DueDate == nil) {
			return b.DueDate == nil
		}
		if c == 0 {
			c = cmpInt64(a.Seq, b.Seq)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compare(a, b models.Task, by models.SortField) int {
	switch by {
	case models.SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case models.SortDueDate:
		if a.DueDate == nil || b.DueDate == nil {
			return 0
		}
		return a.DueDate.Compare(*b.DueDate)
	case models.SortTitle:
		return strings.Compare(a.Title, b.Title)
	case models.SortPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func clone(t models.Task) models.Task {
	if t.Tags != nil {
		t.Tags = append([]string(nil), t.Tags...)
	}
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	if t.CompletedAt != nil {
		c := *t.CompletedAt
		t.CompletedAt = &c
	}
	return t
}
