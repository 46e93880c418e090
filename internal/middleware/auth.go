package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/baharkarakas/taskboard/internal/api/httpx"
	"github.com/baharkarakas/taskboard/internal/apperr"
	"github.com/baharkarakas/taskboard/internal/auth"
)

type ctxKey string

const ctxPrincipalKey ctxKey = "principal"

// Authenticator resolves a bearer token into the calling principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
}

func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey, p)
}

func PrincipalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(ctxPrincipalKey).(auth.Principal)
	return p, ok
}

// Auth rejects requests without a valid access token.
func Auth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r)
			if !ok {
				httpx.Error(w, r, apperr.ErrUnauthenticated)
				return
			}
			p, err := a.Authenticate(r.Context(), token)
			if err != nil {
				httpx.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	ah := r.Header.Get("Authorization")
	if len(ah) < len("bearer ") || !strings.EqualFold(ah[:len("bearer ")], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(ah[len("bearer "):])
	return token, token != ""
}
