package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/taskboard/internal/api/httpx"
	"github.com/baharkarakas/taskboard/internal/apperr"
	"github.com/baharkarakas/taskboard/internal/lifecycle"
	"github.com/baharkarakas/taskboard/internal/middleware"
	"github.com/baharkarakas/taskboard/internal/models"
	"github.com/baharkarakas/taskboard/internal/query"
	"github.com/baharkarakas/taskboard/internal/services"
)

// TaskHandler serves /tasks. The owner id always comes from the
// authenticated principal, never from the request.
type TaskHandler struct {
	svc *services.TaskService
	now func() time.Time
}

func NewTaskHandler(svc *services.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc, now: time.Now}
}

func (h *TaskHandler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		httpx.Error(w, r, apperr.ErrUnauthenticated)
		return "", false
	}
	return p.UserID, true
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	q, err := query.ParseTasks(r.URL.Query())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	page, err := h.svc.List(r.Context(), ownerID, q)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.List(w, models.Views(page.Items, h.now()), len(page.Items), page.Total, q.Page, q.Limit)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	t, err := h.svc.Get(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, t.View(h.now()))
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	var in models.TaskInput
	typed, ok := decode(w, r, &in)
	if !ok || rejectTyped(w, r, typed, func() error { return lifecycle.ValidateCreate(in, h.now()) }) {
		return
	}
	t, err := h.svc.Create(r.Context(), ownerID, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Created(w, t.View(h.now()))
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	var p models.TaskPatch
	typed, ok := decode(w, r, &p)
	if !ok || rejectTyped(w, r, typed, func() error { return lifecycle.ValidatePatch(p) }) {
		return
	}
	t, err := h.svc.Update(r.Context(), ownerID, chi.URLParam(r, "id"), p)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, t.View(h.now()))
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Success: true, Data: map[string]any{}, Message: "task deleted"})
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Stats(r.Context(), ownerID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, st)
}
