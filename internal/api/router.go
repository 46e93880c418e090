package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/taskboard/internal/api/handlers"
	"github.com/baharkarakas/taskboard/internal/api/httpx"
	"github.com/baharkarakas/taskboard/internal/metrics"
	"github.com/baharkarakas/taskboard/internal/middleware"
	"github.com/baharkarakas/taskboard/internal/models"
	repo "github.com/baharkarakas/taskboard/internal/repository"
	"github.com/baharkarakas/taskboard/internal/services"
)

type RouterDeps struct {
	Users        *services.UserService
	Tasks        *services.TaskService
	Store        repo.Pinger
	StoreTimeout time.Duration
	RateRPS      int
	CORSOrigins  []string
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	}))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Message(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Message(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// health & metrics
	health := handlers.NewHealthHandler(d.Store, d.StoreTimeout)
	r.Get("/health", health.Health)
	r.Handle("/metrics", metrics.Handler())

	authH := handlers.NewAuthHandler(d.Users)
	userH := handlers.NewUserHandler(d.Users)
	taskH := handlers.NewTaskHandler(d.Tasks)
	requireAuth := middleware.Auth(d.Users)

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- auth ----------
		r.Post("/auth/register", authH.Register)
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)
		r.With(requireAuth).Get("/auth/me", authH.Me)

		// ---------- users (admin) ----------
		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth, middleware.RequireRole(models.RoleAdmin))
			r.Get("/", userH.List)
			r.Get("/{id}", userH.Get)
			r.Delete("/{id}", userH.Deactivate)
		})

		// ---------- tasks ----------
		r.Route("/tasks", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", taskH.List)
			r.Post("/", taskH.Create)
			r.Get("/stats/overview", taskH.Stats)
			r.Get("/{id}", taskH.Get)
			r.Put("/{id}", taskH.Update)
			r.Delete("/{id}", taskH.Delete)
		})
	})

	return r
}
