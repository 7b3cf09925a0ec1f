package session

import (
	"context"
)

type contextKey string

const identityContextKey contextKey = "session_identity"

// ContextWithIdentity binds the authenticated identity to the request
// context.
func ContextWithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, ident)
}

// IdentityFromContext returns the authenticated identity, or nil when the
// request is unauthenticated. Handlers mounted behind the auth middleware can
// rely on it being set.
func IdentityFromContext(ctx context.Context) *Identity {
	ident, _ := ctx.Value(identityContextKey).(*Identity)
	return ident
}
