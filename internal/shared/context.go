package shared

import "context"

// Principal describes the authenticated actor for the current request.
// Authentication itself happens upstream (gateway or session service); the
// studio only consumes the resulting identity.
type Principal struct {
	UserID string
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context. The boolean is
// false when no identity was attached to the request.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok && p.UserID != ""
}
