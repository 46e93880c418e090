package models

import (
	"math"
	"time"
)

type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortDueDate   SortField = "dueDate"
	SortTitle     SortField = "title"
	SortPriority  SortField = "priority"
)

func (f SortField) Valid() bool {
	switch f {
	case SortCreatedAt, SortUpdatedAt, SortDueDate, SortTitle, SortPriority:
		return true
	}
	return false
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func (o SortOrder) Valid() bool { return o == SortAsc || o == SortDesc }

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// TaskQuery is the normalized list descriptor. Optional filters are nil/empty
// when absent.
type TaskQuery struct {
	Page      int
	Limit     int
	Status    *TaskStatus
	Priority  *TaskPriority
	Search    string
	Tag       string
	DueBefore *time.Time
	DueAfter  *time.Time
	SortBy    SortField
	SortOrder SortOrder
}

func DefaultTaskQuery() TaskQuery {
	return TaskQuery{
		Page:      DefaultPage,
		Limit:     DefaultLimit,
		SortBy:    SortCreatedAt,
		SortOrder: SortDesc,
	}
}

// Offset is the number of matches skipped before this page. It saturates at
// math.MaxInt, so a page far past the end reads as an empty page.
func (q TaskQuery) Offset() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// TaskStats is the dashboard aggregate. Overdue and DueToday overlap the
// status buckets.
type TaskStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in-progress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
	Overdue    int `json:"overdue"`
	DueToday   int `json:"dueToday"`
}

// Add counts one task into the aggregate against the given reference time.
func (s *TaskStats) Add(t Task, now time.Time) {
	s.Total++
	switch t.Status {
	case StatusPending:
		s.Pending++
	case StatusInProgress:
		s.InProgress++
	case StatusCompleted:
		s.Completed++
	case StatusCancelled:
		s.Cancelled++
	}
	if t.IsOverdue(now) {
		s.Overdue++
	}
	if t.IsDueToday(now) {
		s.DueToday++
	}
}
