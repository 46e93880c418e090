package middleware

import (
	"net/http"

	"github.com/baharkarakas/taskboard/internal/api/httpx"
	"github.com/baharkarakas/taskboard/internal/apperr"
	"github.com/baharkarakas/taskboard/internal/models"
)

// RequireRole allows only principals holding role. It must run after Auth.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				httpx.Error(w, r, apperr.ErrUnauthenticated)
				return
			}
			if p.Role != role {
				httpx.Error(w, r, apperr.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
