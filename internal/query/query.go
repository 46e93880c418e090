// Package query turns raw list parameters into a typed models.TaskQuery.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/baharkarakas/taskboard/internal/models"
	"github.com/baharkarakas/taskboard/internal/validate"
)

// ParseTasks validates and normalizes the list parameters. Every violation is
// reported at once as validate.Errs. Empty values count as absent.
func ParseTasks(v url.Values) (models.TaskQuery, error) {
	q := models.DefaultTaskQuery()
	var errs validate.Errs

	if s := get(v, "page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			errs.AddMsg("page", "page must be a positive integer")
		} else {
			q.Page = n
		}
	}
	if s := get(v, "limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > models.MaxLimit {
			errs.AddMsg("limit", "limit must be between 1 and "+strconv.Itoa(models.MaxLimit))
		} else {
			q.Limit = n
		}
	}
	if s := get(v, "status"); s != "" {
		st := models.TaskStatus(s)
		if ef := validate.OneOf("status", st, models.Statuses); ef != nil {
			errs.Add(ef)
		} else {
			q.Status = &st
		}
	}
	if s := get(v, "priority"); s != "" {
		p := models.TaskPriority(s)
		if ef := validate.OneOf("priority", p, models.Priorities); ef != nil {
			errs.Add(ef)
		} else {
			q.Priority = &p
		}
	}
	q.Search = get(v, "search")
	q.Tag = get(v, "tag")

	for _, name := range []string{"dueBefore", "dueAfter"} {
		s := get(v, name)
		if s == "" {
			continue
		}
		t, err := models.ParseTime(s)
		if err != nil {
			errs.AddMsg(name, name+" must be a valid date")
			continue
		}
		if name == "dueBefore" {
			q.DueBefore = &t
		} else {
			q.DueAfter = &t
		}
	}

	if s := get(v, "sortBy"); s != "" {
		f := models.SortField(s)
		if !f.Valid() {
			errs.AddMsg("sortBy", "sortBy must be one of: createdAt, updatedAt, dueDate, title, priority")
		} else {
			q.SortBy = f
		}
	}
	if s := get(v, "sortOrder"); s != "" {
		o := models.SortOrder(strings.ToLower(s))
		if !o.Valid() {
			errs.AddMsg("sortOrder", "sortOrder must be asc or desc")
		} else {
			q.SortOrder = o
		}
	}

	if err := errs.Err(); err != nil {
		return models.TaskQuery{}, err
	}
	return q, nil
}

func get(v url.Values, key string) string { return strings.TrimSpace(v.Get(key)) }
