package auth

import "context"

type contextKey int

const identityKey contextKey = iota

// ContextWithIdentity returns a copy of ctx carrying identity.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the identity stored by one of the
// middlewares.
//
// Example:
//
//	id, ok := auth.IdentityFromContext(r.Context())
//	if !ok {
//	    http.Error(w, "unauthenticated", http.StatusUnauthorized)
//	    return
//	}
//	logger.Info("request", "sub", id.Subject)
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// MustIdentityFromContext is [IdentityFromContext] for handlers mounted
// behind a middleware. It panics when no identity is present.
func MustIdentityFromContext(ctx context.Context) Identity {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		panic("auth: no identity in context; ensure authentication middleware is configured")
	}
	return identity
}
