package middleware

import (
	"net/http"

	"github.com/rootsreach/rootsreach-backend/api/responses"
	"github.com/rootsreach/rootsreach-backend/internal/auth"
	"github.com/rootsreach/rootsreach-backend/pkg/enums"
	"github.com/rootsreach/rootsreach-backend/pkg/logger"
)

// RequireRoles admits the identity placed by Authenticate only when its role
// is one of roles. With no roles any authenticated caller passes.
func RequireRoles(logg *logger.Logger, roles ...enums.Role) func(http.Handler) http.Handler {
	required := enums.NewRoleSet(roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, _ := IdentityFromContext(r.Context())
			if err := auth.Admit(identity, required); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
