package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/account"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
)

type contextKey string

const holderKey contextKey = "holder"

type Middleware struct {
	Registry *account.Registry
	Logger   hclog.Logger
}

// AuthMiddleware resolves the bearer token to the caller's session holder.
func (m *Middleware) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			JSONError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		holder, err := m.Registry.Resolve(r.Context(), token)
		if err != nil {
			writeError(w, m.Logger, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), holderKey, holder)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin is AuthMiddleware restricted to administrators.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		holder, _ := GetHolder(r)
		if !holder.IsAdmin() {
			writeError(w, m.Logger, r, apperr.Forbidden("Administrator access required"))
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func GetHolder(r *http.Request) (*account.Holder, bool) {
	holder, ok := r.Context().Value(holderKey).(*account.Holder)
	return holder, ok
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
