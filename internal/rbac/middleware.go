package rbac

import (
	"log/slog"
	"net/http"

	"github.com/manara-erp/manara/internal/platform/httpx"
	"github.com/manara-erp/manara/internal/shared"
)

// Middleware wires capability checks into HTTP handlers.
type Middleware struct {
	Checker Checker
	Logger  *slog.Logger
}

// Require ensures the request actor may perform action on view.
func (m Middleware) Require(action Action, view View) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !m.Checker.CanPerform(actor, action, view) {
				if m.Logger != nil {
					m.Logger.Warn("rbac denied",
						slog.String("user_id", actor.UserID),
						slog.String("role", actor.Role),
						slog.String("action", string(action)),
						slog.String("view", string(view)))
				}
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Allowed reports whether the request actor holds action on view.
func (m Middleware) Allowed(r *http.Request, action Action, view View) bool {
	return m.Checker.CanPerform(shared.ActorFromContext(r.Context()), action, view)
}
