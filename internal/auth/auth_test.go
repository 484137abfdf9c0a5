package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"bazara.org/internal/fault"
)

type actorStoreStub struct {
	actors map[string]*Actor
}

func (s *actorStoreStub) Find(_ context.Context, id string) (*Actor, error) {
	a, ok := s.actors[id]
	if !ok {
		return nil, fault.ErrNotFound
	}
	return a, nil
}

func (s *actorStoreStub) FindByEmail(_ context.Context, email string) (*Actor, error) {
	for _, a := range s.actors {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, fault.ErrNotFound
}

func TestTokenRoundTrip(t *testing.T) {
	signer, err := NewTokenSigner("test-secret-at-least-decent")
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}

	token, err := signer.Generate("actor-1", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	claims, err := signer.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "actor-1" || claims.Role != string(RoleAdmin) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.SessionID == "" {
		t.Fatal("session id missing")
	}
}

func TestTokenExpiry(t *testing.T) {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	signer, err := NewTokenSigner("test-secret")
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}
	signer.WithClock(func() time.Time { return base })

	token, err := signer.Generate("actor-1", RoleOwner, 10*time.Minute)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	signer.WithClock(func() time.Time { return base.Add(11 * time.Minute) })
	if _, err := signer.ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: %v, want ErrInvalidToken", err)
	}
}

func TestTokenRejectsForeignSignature(t *testing.T) {
	a, _ := NewTokenSigner("secret-a")
	b, _ := NewTokenSigner("secret-b")
	token, err := a.Generate("actor-1", RoleVendor, time.Hour)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := b.ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign signature: %v, want ErrInvalidToken", err)
	}
}

func TestResolveBuildsTenantContext(t *testing.T) {
	signer, _ := NewTokenSigner("resolver-secret")
	actors := &actorStoreStub{actors: map[string]*Actor{
		"actor-1": {ID: "actor-1", Email: "a@example.kz", Role: RoleOwner, Active: true},
	}}
	resolver, err := NewResolver(signer, actors)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	token, err := signer.Generate("actor-1", RoleOwner, time.Hour)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	tc, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tc.ActorID != "actor-1" || tc.Role != RoleOwner || tc.SessionID == "" {
		t.Fatalf("unexpected context: %+v", tc)
	}
	if !tc.Valid() {
		t.Fatal("resolved context reports invalid")
	}
}

func TestResolveStoredRoleWins(t *testing.T) {
	signer, _ := NewTokenSigner("resolver-secret")
	actors := &actorStoreStub{actors: map[string]*Actor{
		"actor-1": {ID: "actor-1", Role: RoleVendor, Active: true},
	}}
	resolver, _ := NewResolver(signer, actors)

	// Token minted before a demotion still carries the old role.
	token, err := signer.Generate("actor-1", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	tc, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tc.Role != RoleVendor {
		t.Fatalf("role = %s, want stored %s", tc.Role, RoleVendor)
	}
}

func TestResolveDisabledAccount(t *testing.T) {
	signer, _ := NewTokenSigner("resolver-secret")
	actors := &actorStoreStub{actors: map[string]*Actor{
		"actor-1": {ID: "actor-1", Role: RoleAdmin, Active: false},
	}}
	resolver, _ := NewResolver(signer, actors)

	token, err := signer.Generate("actor-1", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := resolver.Resolve(context.Background(), token); !errors.Is(err, fault.ErrAccountDisabled) {
		t.Fatalf("disabled actor: %v, want ErrAccountDisabled", err)
	}
}

func TestResolveUnknownActor(t *testing.T) {
	signer, _ := NewTokenSigner("resolver-secret")
	resolver, _ := NewResolver(signer, &actorStoreStub{actors: map[string]*Actor{}})

	token, err := signer.Generate("ghost", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := resolver.Resolve(context.Background(), token); !errors.Is(err, fault.ErrUnauthenticated) {
		t.Fatalf("unknown actor: %v, want ErrUnauthenticated", err)
	}
	if _, err := resolver.Resolve(context.Background(), "not-a-token"); !errors.Is(err, fault.ErrUnauthenticated) {
		t.Fatalf("garbage token: %v, want ErrUnauthenticated", err)
	}
}

func TestTenantContextRoundTrip(t *testing.T) {
	tc := TenantContext{ActorID: "actor-1", Role: RoleAdmin, StoreID: "store-1", SessionID: "sess-1"}
	ctx := ContextWithTenant(context.Background(), tc)

	got, ok := TenantFromContext(ctx)
	if !ok || got != tc {
		t.Fatalf("round trip = %+v ok=%v", got, ok)
	}
	if _, ok := TenantFromContext(context.Background()); ok {
		t.Fatal("empty context yielded a tenant")
	}

	narrowed := tc.WithStore("store-2")
	if narrowed.StoreID != "store-2" || tc.StoreID != "store-1" {
		t.Fatal("WithStore must copy, not mutate")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(hash, "correct horse battery staple"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := VerifyPassword(hash, "wrong password"); err == nil {
		t.Fatal("wrong password accepted")
	}
	if err := VerifyPassword("not-a-hash", "anything"); err == nil {
		t.Fatal("malformed hash accepted")
	}
}
