package auth

import "context"

// TenantContext is the capability token carried through every operation in
// the core: who is asking, on behalf of which store. It is constructed once
// per request from verified session data and never mutated. The store id in a
// request body is advisory only; the authoritative store id comes from the
// resource being acted on.
type TenantContext struct {
	ActorID   string
	Role      Role
	StoreID   string // empty for cross-store OWNER operations
	SessionID string
}

// Valid reports whether the context identifies an actor.
func (tc TenantContext) Valid() bool {
	return tc.ActorID != "" && tc.Role != ""
}

type tenantContextKey struct{}

// ContextWithTenant attaches the resolved tenant context.
func ContextWithTenant(ctx context.Context, tc TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tc)
}

// TenantFromContext extracts the tenant context if one was attached.
func TenantFromContext(ctx context.Context) (TenantContext, bool) {
	if ctx == nil {
		return TenantContext{}, false
	}
	tc, ok := ctx.Value(tenantContextKey{}).(TenantContext)
	if !ok || !tc.Valid() {
		return TenantContext{}, false
	}
	return tc, true
}
