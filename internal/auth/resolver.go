package auth

import (
	"context"
	"errors"
	"fmt"

	"bazara.org/internal/fault"
)

// Resolver turns a verified session token into a TenantContext. It is the
// only constructor for tenant contexts: handlers never build one from request
// payload fields.
type Resolver struct {
	signer *TokenSigner
	actors ActorStore
}

// NewResolver wires the token signer and actor storage.
func NewResolver(signer *TokenSigner, actors ActorStore) (*Resolver, error) {
	if signer == nil {
		return nil, errors.New("auth: token signer is required")
	}
	if actors == nil {
		return nil, errors.New("auth: actor store is required")
	}
	return &Resolver{signer: signer, actors: actors}, nil
}

// Resolve verifies the session token, loads the actor and constructs the
// tenant context. A missing or expired session yields ErrUnauthenticated, a
// deactivated actor ErrAccountDisabled.
func (r *Resolver) Resolve(ctx context.Context, token string) (TenantContext, error) {
	claims, err := r.signer.ParseAndValidate(token)
	if err != nil {
		return TenantContext{}, fault.ErrUnauthenticated
	}
	actor, err := r.actors.Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return TenantContext{}, fault.ErrUnauthenticated
		}
		return TenantContext{}, err
	}
	if !actor.Active {
		return TenantContext{}, fault.ErrAccountDisabled
	}
	// The role in the claims may be stale after an escalation or demotion;
	// the stored role wins.
	role, err := ParseRole(string(actor.Role))
	if err != nil {
		return TenantContext{}, fmt.Errorf("resolve actor %s: %w", actor.ID, err)
	}
	return TenantContext{
		ActorID:   actor.ID,
		Role:      role,
		SessionID: claims.SessionID,
	}, nil
}

// WithStore returns a copy of the context narrowed to one store. Used by the
// HTTP layer once the target resource's store is known.
func (tc TenantContext) WithStore(storeID string) TenantContext {
	tc.StoreID = storeID
	return tc
}
