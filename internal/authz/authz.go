// Package authz derives authorization state from a session snapshot and
// gates routes by role.
package authz

import (
	"net/http"

	"github.com/vnthuan01/law-stand-sub001/internal/models"
	"github.com/vnthuan01/law-stand-sub001/internal/session"
	"github.com/vnthuan01/law-stand-sub001/internal/transport"
)

type Authorization struct {
	IsAuthenticated bool
	Role            models.UserRole
	User            *models.User
}

// Authorize mirrors a resolved session. A loading or otherwise unresolved
// snapshot yields the anonymous authorization, never a stale previous user.
func Authorize(snap session.Snapshot) Authorization {
	if !snap.IsAuthenticated() {
		return Authorization{}
	}
	return Authorization{
		IsAuthenticated: true,
		Role:            snap.User.Role,
		User:            snap.User,
	}
}

// CheckRole reports membership of role in allowed. An empty allowed list is
// always false.
func CheckRole(role models.UserRole, allowed []models.UserRole) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// SnapshotSource reads the request's session snapshot; the middleware package
// provides it from the request context.
type SnapshotSource func(r *http.Request) session.Snapshot

// Require gates a subtree to the given roles: 401 for anonymous sessions,
// 403 for authenticated users outside the allowed set.
func Require(source SnapshotSource, allowed ...models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := Authorize(source(r))
			if !auth.IsAuthenticated {
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			if !CheckRole(auth.Role, allowed) {
				transport.WriteError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
