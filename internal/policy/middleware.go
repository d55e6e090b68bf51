package policy

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/shared"
)

// GrantSource supplies the full set of role grants for a user. The engine
// never fetches grants itself; middleware resolves them per request so
// caching policy stays with the implementation.
type GrantSource interface {
	UserGrants(ctx context.Context, userID string) ([]UserRole, error)
}

// Middleware wires authorization checks into HTTP handlers.
type Middleware struct {
	Engine *Engine
	Grants GrantSource
	Logger *slog.Logger
}

// Require ensures the current principal may perform action at scope. When
// the route carries a {resourceID} parameter the decision is pinned to that
// resource. Denials answer 403 with the decision reason; missing identity
// answers 401; grant-store and configuration faults answer 500.
func (m Middleware) Require(action Permission, scope Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			grants, err := m.Grants.UserGrants(r.Context(), principal.UserID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("load grants", slog.String("user_id", principal.UserID), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			decision, err := m.Engine.Evaluate(r.Context(), Request{
				UserID:     principal.UserID,
				UserRoles:  grants,
				Action:     action,
				Scope:      scope,
				ResourceID: chi.URLParam(r, "resourceID"),
			})
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("evaluate", slog.String("user_id", principal.UserID), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !decision.Allowed {
				if m.Logger != nil {
					m.Logger.Info("access denied",
						slog.String("user_id", principal.UserID),
						slog.String("action", string(action)),
						slog.String("reason", decision.Reason),
					)
				}
				http.Error(w, decision.Reason, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
