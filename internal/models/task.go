package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Statuses lists every status in display order.
var Statuses = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Closed reports whether the task no longer counts towards overdue/due-today.
func (s TaskStatus) Closed() bool { return s == StatusCompleted || s == StatusCancelled }

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

var Priorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p TaskPriority) Valid() bool { return p.Rank() >= 0 }

// Rank orders priorities from low (0) to urgent (3); -1 for unknown values.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	}
	return -1
}

const (
	TitleMaxLen       = 100
	DescriptionMaxLen = 500
	TagMaxLen         = 20
)

type Task struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"ownerId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"dueDate"`
	Tags        []string     `json:"tags"`
	CompletedAt *time.Time   `json:"completedAt"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`

	// Seq is the store's insertion sequence, used to break sort ties.
	Seq int64 `json:"-"`
}

// IsOverdue is derived on read and never stored.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.Status.Closed()
}

// IsDueToday reports whether the due date falls in [start of today, start of tomorrow).
func (t Task) IsDueToday(now time.Time) bool {
	if t.DueDate == nil || t.Status.Closed() {
		return false
	}
	start, end := DayBounds(now)
	return !t.DueDate.Before(start) && t.DueDate.Before(end)
}

// DayBounds returns the start of now's calendar day and the start of the next one,
// in now's location.
func DayBounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

// TaskView is the wire representation of a task, carrying the derived fields.
type TaskView struct {
	Task
	IsOverdue bool `json:"isOverdue"`
}

func (t Task) View(now time.Time) TaskView {
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return TaskView{Task: t, IsOverdue: t.IsOverdue(now)}
}

func Views(tasks []Task, now time.Time) []TaskView {
	out := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.View(now))
	}
	return out
}

// TaskInput is the create payload.
type TaskInput struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     OptionalTime `json:"dueDate"`
	Tags        []string     `json:"tags"`
}

// TaskPatch is a partial update; nil/unset fields are left untouched.
type TaskPatch struct {
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	Status      *TaskStatus   `json:"status"`
	Priority    *TaskPriority `json:"priority"`
	DueDate     OptionalTime  `json:"dueDate"`
	Tags        *[]string     `json:"tags"`
}

// OptionalTime distinguishes an absent JSON key (Set=false) from an explicit
// null or empty string (Set=true, Time=nil). Unparseable input sets Invalid so
// validation can report it alongside the other field errors.
type OptionalTime struct {
	Set     bool
	Time    *time.Time
	Invalid bool
}

func SomeTime(t time.Time) OptionalTime { return OptionalTime{Set: true, Time: &t} }

var NullTime = OptionalTime{Set: true}

func (o *OptionalTime) UnmarshalJSON(b []byte) error {
	*o = OptionalTime{Set: true}
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		o.Invalid = true
		return nil
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	t, err := ParseTime(s)
	if err != nil {
		o.Invalid = true
		return nil
	}
	o.Time = &t
	return nil
}

func (o OptionalTime) MarshalJSON() ([]byte, error) {
	if o.Time == nil {
		return []byte("null"), nil
	}
	return json.Marshal(o.Time)
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ParseTime accepts RFC3339 timestamps or plain YYYY-MM-DD dates (UTC midnight).
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
