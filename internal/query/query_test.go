package query

import (
	"math"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/taskboard/internal/models"
	"github.com/baharkarakas/taskboard/internal/validate"
)

func TestParseTasksDefaults(t *testing.T) {
	q, err := ParseTasks(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultTaskQuery(), q)
	assert.Equal(t, 0, q.Offset())
}

func TestParseTasksFullDescriptor(t *testing.T) {
	v := url.Values{
		"page":      {"3"},
		"limit":     {"25"},
		"status":    {"in-progress"},
		"priority":  {"urgent"},
		"search":    {"  report "},
		"tag":       {"work"},
		"dueBefore": {"2030-01-31"},
		"dueAfter":  {"2030-01-01T08:00:00Z"},
		"sortBy":    {"priority"},
		"sortOrder": {"ASC"},
	}
	q, err := ParseTasks(v)
	require.NoError(t, err)

	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 25, q.Limit)
	assert.Equal(t, 50, q.Offset())
	require.NotNil(t, q.Status)
	assert.Equal(t, models.StatusInProgress, *q.Status)
	require.NotNil(t, q.Priority)
	assert.Equal(t, models.PriorityUrgent, *q.Priority)
	assert.Equal(t, "report", q.Search)
	assert.Equal(t, "work", q.Tag)
	require.NotNil(t, q.DueBefore)
	assert.True(t, q.DueBefore.Equal(time.Date(2030, 1, 31, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, q.DueAfter)
	assert.True(t, q.DueAfter.Equal(time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, models.SortPriority, q.SortBy)
	assert.Equal(t, models.SortAsc, q.SortOrder)
}

func TestParseTasksEmptyValuesAreAbsent(t *testing.T) {
	q, err := ParseTasks(url.Values{"status": {""}, "page": {" "}, "dueBefore": {""}})
	require.NoError(t, err)
	assert.Nil(t, q.Status)
	assert.Nil(t, q.DueBefore)
	assert.Equal(t, models.DefaultPage, q.Page)
}

func TestParseTasksHugePageSaturatesOffset(t *testing.T) {
	q, err := ParseTasks(url.Values{"page": {"1000000000000000000"}, "limit": {"10"}})
	require.NoError(t, err)
	assert.Equal(t, 1_000_000_000_000_000_000, q.Page)
	assert.Equal(t, math.MaxInt, q.Offset())

	q, err = ParseTasks(url.Values{"page": {strconv.Itoa(math.MaxInt)}, "limit": {"100"}})
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, q.Offset())
}

func TestParseTasksRejections(t *testing.T) {
	tests := []struct {
		name  string
		v     url.Values
		field string
	}{
		{"page zero", url.Values{"page": {"0"}}, "page"},
		{"page not a number", url.Values{"page": {"two"}}, "page"},
		{"limit too large", url.Values{"limit": {"101"}}, "limit"},
		{"limit zero", url.Values{"limit": {"0"}}, "limit"},
		{"unknown status", url.Values{"status": {"done"}}, "status"},
		{"unknown priority", url.Values{"priority": {"critical"}}, "priority"},
		{"bad dueBefore", url.Values{"dueBefore": {"next week"}}, "dueBefore"},
		{"bad dueAfter", url.Values{"dueAfter": {"2030-13-01"}}, "dueAfter"},
		{"unknown sortBy", url.Values{"sortBy": {"owner"}}, "sortBy"},
		{"unknown sortOrder", url.Values{"sortOrder": {"up"}}, "sortOrder"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTasks(tt.v)
			require.Error(t, err)
			assert.True(t, validate.Has(err, tt.field), "expected violation for %s, got %v", tt.field, err)
		})
	}
}

func TestParseTasksReportsEveryViolation(t *testing.T) {
	_, err := ParseTasks(url.Values{
		"page":     {"-1"},
		"limit":    {"500"},
		"status":   {"nope"},
		"dueAfter": {"yesterday"},
	})
	errs, ok := validate.As(err)
	require.True(t, ok)
	require.Len(t, errs, 4)
	fields := []string{errs[0].Field, errs[1].Field, errs[2].Field, errs[3].Field}
	assert.ElementsMatch(t, []string{"page", "limit", "status", "dueAfter"}, fields)
}
