package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/taskboard/internal/apperr"
	"github.com/baharkarakas/taskboard/internal/db"
	"github.com/baharkarakas/taskboard/internal/models"
	repo "github.com/baharkarakas/taskboard/internal/repository"
)

var (
	poolOnce sync.Once
	testPool *pgxpool.Pool
	poolErr  error
)

// testRepos connects to TEST_DATABASE_URL and applies migrations, skipping
// the test when no database is reachable.
func testRepos(t *testing.T) repo.Repositories {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	poolOnce.Do(func() {
		ctx := context.Background()
		testPool, poolErr = db.NewPool(ctx, url, 4)
		if poolErr == nil {
			poolErr = db.RunMigrations(ctx, testPool)
		}
	})
	if poolErr != nil {
		t.Skipf("postgres unavailable: %v", poolErr)
	}
	return NewRepositories(testPool)
}

func newOwner(t *testing.T, r repo.Repositories) models.User {
	t.Helper()
	u, err := r.Users.Create(context.Background(), models.User{
		Name:         "owner",
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         models.RoleUser,
		IsActive:     true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = testPool.Exec(context.Background(), `DELETE FROM users WHERE id=$1`, u.ID)
	})
	return u
}

func newTask(ownerID, title string, mut func(*models.Task)) models.Task {
	now := time.Now().UTC().Truncate(time.Microsecond)
	t := models.Task{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Status:    models.StatusPending,
		Priority:  models.PriorityMedium,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if mut != nil {
		mut(&t)
	}
	return t
}

func TestPostgresTaskRoundTripAndOwnership(t *testing.T) {
	r := testRepos(t)
	ctx := context.Background()
	alice := newOwner(t, r)
	bob := newOwner(t, r)

	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Microsecond)
	created, err := r.Tasks.Create(ctx, newTask(alice.ID, "Write report", func(t *models.Task) {
		t.DueDate = &due
		t.Tags = []string{"work", "q3"}
	}))
	require.NoError(t, err)
	assert.NotZero(t, created.Seq)

	got, err := r.Tasks.GetByID(ctx, alice.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Title)
	assert.Equal(t, []string{"work", "q3"}, got.Tags)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(due))

	_, err = r.Tasks.GetByID(ctx, bob.ID, created.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, r.Tasks.Delete(ctx, bob.ID, created.ID), apperr.ErrNotFound)
	_, err = r.Tasks.GetByID(ctx, alice.ID, "not-a-uuid")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	completedAt := time.Now().UTC().Truncate(time.Microsecond)
	got.Status = models.StatusCompleted
	got.CompletedAt = &completedAt
	updated, err := r.Tasks.Update(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)

	require.NoError(t, r.Tasks.Delete(ctx, alice.ID, created.ID))
	_, err = r.Tasks.GetByID(ctx, alice.ID, created.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPostgresListAndStats(t *testing.T) {
	r := testRepos(t)
	ctx := context.Background()
	owner := newOwner(t, r)
	now := time.Now()
	yesterday := now.Add(-26 * time.Hour)
	nextWeek := now.Add(7 * 24 * time.Hour)

	for _, task := range []models.Task{
		newTask(owner.ID, "Fix login", func(t *models.Task) { t.Tags = []string{"urgent-fix"}; t.Priority = models.PriorityUrgent }),
		newTask(owner.ID, "Deploy", func(t *models.Task) {
			t.Tags = []string{"urgentfix"}
			t.Status = models.StatusCompleted
			t.CompletedAt = &now
		}),
		newTask(owner.ID, "Buy 100% milk", func(t *models.Task) { t.DueDate = &yesterday }),
		newTask(owner.ID, "Plan trip", func(t *models.Task) { t.DueDate = &nextWeek; t.Tags = []string{"home"} }),
	} {
		_, err := r.Tasks.Create(ctx, task)
		require.NoError(t, err)
	}

	q := models.DefaultTaskQuery()
	q.Search = "URGENT"
	items, total, err := r.Tasks.List(ctx, owner.ID, q)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	q = models.DefaultTaskQuery()
	q.Tag = "urgent"
	_, total, err = r.Tasks.List(ctx, owner.ID, q)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	q = models.DefaultTaskQuery()
	q.Search = "100%"
	items, total, err = r.Tasks.List(ctx, owner.ID, q)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "Buy 100% milk", items[0].Title)

	q = models.DefaultTaskQuery()
	q.SortBy, q.SortOrder = models.SortDueDate, models.SortAsc
	q.Limit = 2
	items, total, err = r.Tasks.List(ctx, owner.ID, q)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, items, 2)
	assert.Equal(t, "Buy 100% milk", items[0].Title)
	assert.Equal(t, "Plan trip", items[1].Title)

	st, err := r.Tasks.Stats(ctx, owner.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 3, st.Pending)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 1, st.Overdue)
	assert.Equal(t, st.Total, st.Pending+st.InProgress+st.Completed+st.Cancelled)
}

func TestPostgresCompletedAtConstraint(t *testing.T) {
	r := testRepos(t)
	owner := newOwner(t, r)
	_, err := r.Tasks.Create(context.Background(), newTask(owner.ID, "bad", func(t *models.Task) {
		t.Status = models.StatusCompleted
	}))
	assert.True(t, apperr.IsDependency(err))
}

func TestPostgresUserEmailUnique(t *testing.T) {
	r := testRepos(t)
	ctx := context.Background()
	u := newOwner(t, r)

	_, err := r.Users.Create(ctx, models.User{Name: "dup", Email: "  " + u.Email, PasswordHash: "x", Role: models.RoleUser, IsActive: true})
	assert.ErrorIs(t, err, apperr.ErrEmailTaken)

	got, err := r.Users.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, r.Users.SetActive(ctx, u.ID, false))
	got, err = r.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestPostgresAuditInsert(t *testing.T) {
	r := testRepos(t)
	owner := newOwner(t, r)
	id := uuid.NewString()
	err := r.AuditLogs.Create(context.Background(), models.AuditLog{
		EntityType: "task",
		EntityID:   &id,
		ActorID:    owner.ID,
		Action:     "status_change",
		Details:    map[string]any{"from": "pending", "to": "completed"},
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, testPool.QueryRow(context.Background(),
		`SELECT count(*) FROM audit_logs WHERE entity_id=$1 AND details->>'to'='completed'`, id).Scan(&n))
	assert.Equal(t, 1, n)
}
