package middleware

import (
	"net/http"

	"github.com/enriquemoya/cardstock-backend/api/responses"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
	pkgerrors "github.com/enriquemoya/cardstock-backend/pkg/errors"
	"github.com/enriquemoya/cardstock-backend/pkg/logger"
)

// RequireRole gates a route group to a minimum staff role. Admin passes every
// gate; manager passes manager and cashier gates.
func RequireRole(role enums.StaffRole, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := enums.StaffRole(RoleFromContext(r.Context()))
			if !allows(actor, role) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func allows(actor, required enums.StaffRole) bool {
	rank := map[enums.StaffRole]int{
		enums.StaffRoleCashier: 1,
		enums.StaffRoleManager: 2,
		enums.StaffRoleAdmin:   3,
	}
	actorRank, ok := rank[actor]
	if !ok {
		return false
	}
	return actorRank >= rank[required]
}
