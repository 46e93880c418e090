package handlers

import (
	"net/http"

	"github.com/baharkarakas/taskboard/internal/api/httpx"
	"github.com/baharkarakas/taskboard/internal/apperr"
	"github.com/baharkarakas/taskboard/internal/auth"
	"github.com/baharkarakas/taskboard/internal/middleware"
	"github.com/baharkarakas/taskboard/internal/models"
	"github.com/baharkarakas/taskboard/internal/services"
	"github.com/baharkarakas/taskboard/internal/validate"
)

type AuthHandler struct {
	users *services.UserService
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

type sessionResp struct {
	User models.User `json:"user"`
	auth.TokenPair
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	typed, ok := decode(w, r, &req)
	if !ok || rejectTyped(w, r, typed, req.Validate) {
		return
	}
	u, pair, err := h.users.Register(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Created(w, sessionResp{User: u, TokenPair: pair})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	typed, ok := decode(w, r, &req)
	if !ok || rejectTyped(w, r, typed, nil) {
		return
	}
	u, pair, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, sessionResp{User: u, TokenPair: pair})
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	typed, ok := decode(w, r, &req)
	if !ok || rejectTyped(w, r, typed, nil) {
		return
	}
	if ef := validate.Required("refreshToken", req.RefreshToken); ef != nil {
		httpx.Error(w, r, validate.Errs{*ef})
		return
	}
	pair, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, pair)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		httpx.Error(w, r, apperr.ErrUnauthenticated)
		return
	}
	u, err := h.users.Get(r.Context(), p.UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, u)
}
