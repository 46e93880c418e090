// Package lifecycle validates task payloads and applies the state rules that
// must hold after every mutation. Everything here is pure: callers pass the
// reference time in.
package lifecycle

import (
	"strconv"
	"strings"
	"time"

	"github.com/baharkarakas/taskboard/internal/models"
	"github.com/baharkarakas/taskboard/internal/validate"
)

// NewTask validates a create payload, applies defaults and the completion rule.
// The caller assigns id, timestamps and sequence on persist.
func NewTask(ownerID string, in models.TaskInput, now time.Time) (models.Task, error) {
	if err := ValidateCreate(in, now); err != nil {
		return models.Task{}, err
	}
	t := models.Task{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate.Time,
		Tags:        normalizeTags(in.Tags),
	}
	if t.Status == "" {
		t.Status = models.StatusPending
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	applyCompletion(&t, true, now)
	return t, nil
}

// Apply merges a partial update into prev and re-runs the completion rule.
// Only fields present in the patch change. A non-null dueDate is not checked
// against now here, so tasks whose due date has since passed can be resaved.
func Apply(prev models.Task, p models.TaskPatch, now time.Time) (models.Task, error) {
	if err := ValidatePatch(p); err != nil {
		return models.Task{}, err
	}
	next := prev
	next.Tags = append([]string(nil), prev.Tags...)

	if p.Title != nil {
		next.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		next.Description = strings.TrimSpace(*p.Description)
	}
	if p.Priority != nil {
		next.Priority = *p.Priority
	}
	if p.DueDate.Set {
		next.DueDate = p.DueDate.Time
	}
	if p.Tags != nil {
		next.Tags = normalizeTags(*p.Tags)
	}
	if p.Status != nil {
		next.Status = *p.Status
	}
	applyCompletion(&next, p.Status != nil, now)
	return next, nil
}

// applyCompletion keeps CompletedAt in step with Status. It only fires when the
// status was part of the mutation.
func applyCompletion(t *models.Task, statusTouched bool, now time.Time) {
	if !statusTouched {
		return
	}
	if t.Status == models.StatusCompleted {
		if t.CompletedAt == nil {
			at := now
			t.CompletedAt = &at
		}
		return
	}
	t.CompletedAt = nil
}

func ValidateCreate(in models.TaskInput, now time.Time) error {
	var errs validate.Errs
	title := strings.TrimSpace(in.Title)
	if ef := validate.Required("title", title); ef != nil {
		errs.Add(ef)
	} else {
		errs.Add(validate.Length("title", title, 1, models.TitleMaxLen))
	}
	errs.Add(validate.Length("description", strings.TrimSpace(in.Description), 0, models.DescriptionMaxLen))
	if in.Status != "" {
		errs.Add(validate.OneOf("status", in.Status, models.Statuses))
	}
	if in.Priority != "" {
		errs.Add(validate.OneOf("priority", in.Priority, models.Priorities))
	}
	switch {
	case in.DueDate.Invalid:
		errs.AddMsg("dueDate", "dueDate must be a valid date")
	case in.DueDate.Time != nil && !in.DueDate.Time.After(now):
		errs.AddMsg("dueDate", "dueDate must be in the future")
	}
	validateTags(&errs, in.Tags)
	return errs.Err()
}

func ValidatePatch(p models.TaskPatch) error {
	var errs validate.Errs
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if ef := validate.Required("title", title); ef != nil {
			errs.Add(ef)
		} else {
			errs.Add(validate.Length("title", title, 1, models.TitleMaxLen))
		}
	}
	if p.Description != nil {
		errs.Add(validate.Length("description", strings.TrimSpace(*p.Description), 0, models.DescriptionMaxLen))
	}
	if p.Status != nil {
		errs.Add(validate.OneOf("status", *p.Status, models.Statuses))
	}
	if p.Priority != nil {
		errs.Add(validate.OneOf("priority", *p.Priority, models.Priorities))
	}
	if p.DueDate.Invalid {
		errs.AddMsg("dueDate", "dueDate must be a valid date")
	}
	if p.Tags != nil {
		validateTags(&errs, *p.Tags)
	}
	return errs.Err()
}

func validateTags(errs *validate.Errs, tags []string) {
	for i, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			errs.AddMsg("tags", "tags["+strconv.Itoa(i)+"] must not be empty")
			continue
		}
		errs.Add(validate.Length("tags", tag, 1, models.TagMaxLen))
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, strings.TrimSpace(tag))
	}
	return out
}
