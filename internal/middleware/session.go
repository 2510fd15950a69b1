package middleware

import (
	"context"
	"net/http"

	"github.com/vnthuan01/law-stand-sub001/internal/session"
	"github.com/vnthuan01/law-stand-sub001/internal/tokens"
)

type sessionKey struct{}

// Resolver narrows session.Service to what this middleware needs.
type Resolver interface {
	Resolve(ctx context.Context, token string) session.Snapshot
}

// Session resolves the request's credential into a snapshot once per request
// and stores it in the context for handlers and the authz gate.
func Session(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := resolver.Resolve(r.Context(), tokens.Get(r))
			ctx := context.WithValue(r.Context(), sessionKey{}, snap)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromRequest returns the stored snapshot; requests that bypassed the
// Session middleware read as anonymous.
func SessionFromRequest(r *http.Request) session.Snapshot {
	if v := r.Context().Value(sessionKey{}); v != nil {
		if snap, ok := v.(session.Snapshot); ok {
			return snap
		}
	}
	return session.Anonymous()
}
