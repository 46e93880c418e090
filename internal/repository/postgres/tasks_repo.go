package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/baharkarakas/taskboard/internal/apperr"
	"github.com/baharkarakas/taskboard/internal/models"
	"github.com/baharkarakas/taskboard/internal/repository"
)

type tasksRepo struct{ pool *pgxpool.Pool }

func NewTasks(pool *pgxpool.Pool) repository.Tasks { return &tasksRepo{pool: pool} }

const taskColumns = `id::text, owner_id::text, title, description, status, priority, due_date, tags, completed_at, created_at, updated_at, seq`

const priorityRank = `CASE priority WHEN 'low' THEN 0 WHEN 'medium' THEN 1 WHEN 'high' THEN 2 WHEN 'urgent' THEN 3 END`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (r *tasksRepo) List(ctx context.Context, ownerID string, q models.TaskQuery) ([]models.Task, int, error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return []models.Task{}, 0, nil
	}
	countSQL, countArgs, err := buildCountQuery(ownerID, q)
	if err != nil {
		return nil, 0, err
	}
	pageSQL, pageArgs, err := buildListQuery(ownerID, q)
	if err != nil {
		return nil, 0, err
	}

	var (
		total int
		items []models.Task
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.pool.QueryRow(gctx, countSQL, countArgs...).Scan(&total)
	})
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, pageSQL, pageArgs...)
		if err != nil {
			return err
		}
		items, err = collectTasks(rows)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, classify("tasks.list", err)
	}
	return items, total, nil
}

func (r *tasksRepo) GetByID(ctx context.Context, ownerID, id string) (models.Task, error) {
	if !validIDs(ownerID, id) {
		return models.Task{}, apperr.ErrNotFound
	}
	row := r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id=$1 AND owner_id=$2`, id, ownerID)
	t, err := scanTask(row)
	return t, classify("tasks.get", err)
}

func (r *tasksRepo) Create(ctx context.Context, t models.Task) (models.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx, `
INSERT INTO tasks (id, owner_id, title, description, status, priority, due_date, tags, completed_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING `+taskColumns,
		t.ID, t.OwnerID, t.Title, t.Description, string(t.Status), string(t.Priority),
		t.DueDate, nonNilTags(t.Tags), t.CompletedAt, t.CreatedAt, t.UpdatedAt,
	)
	out, err := scanTask(row)
	return out, classify("tasks.create", err)
}

// Update writes the whole mutable row in one statement; concurrent writers are
// last-write-wins and each write carries a status/completed_at pair computed together.
func (r *tasksRepo) Update(ctx context.Context, t models.Task) (models.Task, error) {
	if !validIDs(t.OwnerID, t.ID) {
		return models.Task{}, apperr.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
UPDATE tasks
   SET title=$3, description=$4, status=$5, priority=$6, due_date=$7, tags=$8,
       completed_at=$9, updated_at=$10
 WHERE id=$1 AND owner_id=$2
RETURNING `+taskColumns,
		t.ID, t.OwnerID, t.Title, t.Description, string(t.Status), string(t.Priority),
		t.DueDate, nonNilTags(t.Tags), t.CompletedAt, t.UpdatedAt,
	)
	out, err := scanTask(row)
	return out, classify("tasks.update", err)
}

func (r *tasksRepo) Delete(ctx context.Context, ownerID, id string) error {
	if !validIDs(ownerID, id) {
		return apperr.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return classify("tasks.delete", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

const statsQuery = `
SELECT count(*),
       count(*) FILTER (WHERE status = 'pending'),
       count(*) FILTER (WHERE status = 'in-progress'),
       count(*) FILTER (WHERE status = 'completed'),
       count(*) FILTER (WHERE status = 'cancelled'),
       count(*) FILTER (WHERE due_date < $2 AND status NOT IN ('completed','cancelled')),
       count(*) FILTER (WHERE due_date >= $3 AND due_date < $4 AND status NOT IN ('completed','cancelled'))
  FROM tasks
 WHERE owner_id = $1`

func (r *tasksRepo) Stats(ctx context.Context, ownerID string, now time.Time) (models.TaskStats, error) {
	var s models.TaskStats
	if _, err := uuid.Parse(ownerID); err != nil {
		return s, nil
	}
	start, end := models.DayBounds(now)
	err := r.pool.QueryRow(ctx, statsQuery, ownerID, now, start, end).Scan(
		&s.Total, &s.Pending, &s.InProgress, &s.Completed, &s.Cancelled, &s.Overdue, &s.DueToday,
	)
	return s, classify("tasks.stats", err)
}

// taskFilter is the owner-scoped predicate conjunction for a list descriptor.
func taskFilter(ownerID string, q models.TaskQuery) sq.And {
	where := sq.And{sq.Eq{"owner_id": ownerID}}
	if q.Status != nil {
		where = append(where, sq.Eq{"status": string(*q.Status)})
	}
	if q.Priority != nil {
		where = append(where, sq.Eq{"priority": string(*q.Priority)})
	}
	if q.Tag != "" {
		where = append(where, sq.Expr("? = ANY(tags)", q.Tag))
	}
	if q.DueBefore != nil {
		where = append(where, sq.LtOrEq{"due_date": *q.DueBefore})
	}
	if q.DueAfter != nil {
		where = append(where, sq.GtOrEq{"due_date": *q.DueAfter})
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(q.Search) + "%"
		where = append(where, sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"description": pattern},
			sq.Expr("EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE ?)", pattern),
		})
	}
	return where
}

func orderBy(q models.TaskQuery) []string {
	dir := "DESC"
	if q.SortOrder == models.SortAsc {
		dir = "ASC"
	}
	var col string
	switch q.SortBy {
	case models.SortUpdatedAt:
		col = "updated_at " + dir
	case models.SortDueDate:
		col = "due_date " + dir + " NULLS LAST"
	case models.SortTitle:
		col = `title COLLATE "C" ` + dir
	case models.SortPriority:
		col = priorityRank + " " + dir
	default:
		col = "created_at " + dir
	}
	return []string{col, "seq " + dir}
}

func buildListQuery(ownerID string, q models.TaskQuery) (string, []any, error) {
	return psql.Select(taskColumns).
		From("tasks").
		Where(taskFilter(ownerID, q)).
		OrderBy(orderBy(q)...).
		Limit(uint64(q.Limit)).
		Offset(uint64(q.Offset())).
		ToSql()
}

func buildCountQuery(ownerID string, q models.TaskQuery) (string, []any, error) {
	return psql.Select("count(*)").
		From("tasks").
		Where(taskFilter(ownerID, q)).
		ToSql()
}

func scanTask(row pgx.Row) (models.Task, error) {
	var t models.Task
	var status, priority string
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &status, &priority,
		&t.DueDate, &t.Tags, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt, &t.Seq)
	t.Status = models.TaskStatus(status)
	t.Priority = models.TaskPriority(priority)
	return t, err
}

func collectTasks(rows pgx.Rows) ([]models.Task, error) {
	defer rows.Close()
	out := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func validIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}
