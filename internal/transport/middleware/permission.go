package middleware

import (
	"log/slog"
	"net/http"

	"github.com/okanehara/travel-approval/internal/auth"
	"github.com/okanehara/travel-approval/internal/rbac"
)

// RequireRole gates a route on the role hierarchy: the principal's rank
// must be at least the required role's rank.
func RequireRole(required rbac.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !principal.Role.AtLeast(required) {
				slog.Warn("access denied: insufficient role",
					"user_id", principal.ID,
					"user_role", principal.Role,
					"required_role", required)
				http.Error(w, "Forbidden: insufficient role", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireDepartmentAdmin gates the org-structure admin area: Enterprise
// plan AND admin role, both conditions.
func RequireDepartmentAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !rbac.CanManageDepartments(principal.Role, principal.Plan) {
				slog.Warn("access denied: department management gate",
					"user_id", principal.ID,
					"role", principal.Role,
					"plan", principal.Plan)
				http.Error(w, "Forbidden: requires Enterprise plan and admin role", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
