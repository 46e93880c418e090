package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/taskboard/internal/api/httpx"
	"github.com/baharkarakas/taskboard/internal/services"
)

// UserHandler is the admin-only account surface.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	includeInactive := false
	if v := r.URL.Query().Get("includeInactive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			httpx.BadRequest(w, "includeInactive", "includeInactive must be true or false")
			return
		}
		includeInactive = b
	}
	users, err := h.users.List(r.Context(), includeInactive)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	n := len(users)
	httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Success: true, Data: users, Count: &n})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, u)
}

func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "user deactivated")
}
