package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/taskboard/internal/apperr"
	"github.com/baharkarakas/taskboard/internal/validate"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success    bool                `json:"success"`
	Data       any                 `json:"data,omitempty"`
	Message    string              `json:"message,omitempty"`
	Errors     []validate.ErrField `json:"errors,omitempty"`
	Count      *int                `json:"count,omitempty"`
	Total      *int                `json:"total,omitempty"`
	Pagination *Pagination         `json:"pagination,omitempty"`
}

type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type Pagination struct {
	Next *PageRef `json:"next,omitempty"`
	Prev *PageRef `json:"prev,omitempty"`
}

// Paginate builds the next/prev links for one page of a result of size total.
func Paginate(page, limit, total int) Pagination {
	var p Pagination
	if limit > 0 && total > 0 && page-1 < (total-1)/limit {
		p.Next = &PageRef{Page: page + 1, Limit: limit}
	}
	if page > 1 {
		p.Prev = &PageRef{Page: page - 1, Limit: limit}
	}
	return p
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func Created(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

func Message(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Envelope{Success: status < 400, Message: msg})
}

// List writes a page of items with its count, total and pagination links.
func List(w http.ResponseWriter, items any, count, total, page, limit int) {
	p := Paginate(page, limit, total)
	WriteJSON(w, http.StatusOK, Envelope{
		Success:    true,
		Data:       items,
		Count:      &count,
		Total:      &total,
		Pagination: &p,
	})
}

// Error maps a typed error onto a status code. Dependency and unknown errors
// are logged and reported generically.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	if errs, ok := validate.As(err); ok {
		WriteJSON(w, http.StatusBadRequest, Envelope{Message: "validation failed", Errors: errs})
		return
	}
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		Message(w, http.StatusUnauthorized, "not authorized")
	case errors.Is(err, apperr.ErrInactive):
		Message(w, http.StatusUnauthorized, "account is deactivated")
	case errors.Is(err, apperr.ErrForbidden):
		Message(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, apperr.ErrNotFound):
		Message(w, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrEmailTaken):
		Message(w, http.StatusConflict, "email already registered")
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "dependency", apperr.IsDependency(err), "err", err)
		Message(w, http.StatusInternalServerError, "internal server error")
	}
}

// BadRequest reports a malformed body as a single-field validation failure.
func BadRequest(w http.ResponseWriter, field, msg string) {
	WriteJSON(w, http.StatusBadRequest, Envelope{
		Message: "validation failed",
		Errors:  []validate.ErrField{{Field: field, Message: msg}},
	})
}
