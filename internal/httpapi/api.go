// Package httpapi is the HTTP surface. Handlers translate requests into core
// service calls and the shared error taxonomy into status codes; they never
// evaluate permissions themselves.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bazara.org/internal/access"
	"bazara.org/internal/audit"
	"bazara.org/internal/auth"
	"bazara.org/internal/fault"
	"bazara.org/internal/obs"
	"bazara.org/internal/order"
	"bazara.org/internal/scoped"
	"bazara.org/internal/shop"
	"bazara.org/internal/stream"
)

// ReadyProbe pings the database for the readiness endpoint.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// ActorDirectory is the account surface the auth handlers need.
type ActorDirectory interface {
	auth.ActorStore
	CreateActor(ctx context.Context, a *auth.Actor) error
}

// Config carries the wired core services into the HTTP layer.
type Config struct {
	Resolver    *auth.Resolver
	Signer      *auth.TokenSigner
	Actors      ActorDirectory
	Stores      shop.Stores
	Assignments shop.Assignments
	Products    *scoped.Collection[*shop.Product, shop.ProductUpdate]
	Roles       *access.RoleService
	Orders      *order.Service
	Engine      *access.Engine
	AuditLog    audit.Store
	Stream      *stream.Stream
	Ready       ReadyProbe
	Version     string
	SessionTTL  time.Duration
}

// API is the HTTP layer.
type API struct {
	mux *http.ServeMux
	cfg Config
}

func New(cfg Config) *API {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	a := &API{mux: http.NewServeMux(), cfg: cfg}

	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.HandleFunc("POST /v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("POST /v1/auth/login", a.handleLogin)

	a.mux.HandleFunc("POST /v1/stores", a.handleStoreCreate)
	a.mux.HandleFunc("GET /v1/stores", a.handleStoreList)
	a.mux.HandleFunc("GET /v1/stores/{id}", a.handleStoreGet)
	a.mux.HandleFunc("PATCH /v1/stores/{id}", a.handleStoreUpdate)
	a.mux.HandleFunc("DELETE /v1/stores/{id}", a.handleStoreDelete)

	a.mux.HandleFunc("POST /v1/stores/{id}/staff", a.handleStaffInvite)
	a.mux.HandleFunc("GET /v1/stores/{id}/staff", a.handleStaffList)
	a.mux.HandleFunc("POST /v1/stores/{id}/staff/accept", a.handleStaffAccept)
	a.mux.HandleFunc("DELETE /v1/stores/{id}/staff/{actor}", a.handleStaffRevoke)
	a.mux.HandleFunc("PUT /v1/stores/{id}/staff/{actor}/role", a.handleStaffSetRole)

	a.mux.HandleFunc("GET /v1/stores/{id}/products", a.handleProductList)
	a.mux.HandleFunc("POST /v1/stores/{id}/products", a.handleProductCreate)
	a.mux.HandleFunc("GET /v1/stores/{id}/products/{pid}", a.handleProductGet)
	a.mux.HandleFunc("PATCH /v1/stores/{id}/products/{pid}", a.handleProductUpdate)
	a.mux.HandleFunc("DELETE /v1/stores/{id}/products/{pid}", a.handleProductDelete)

	a.mux.HandleFunc("GET /v1/stores/{id}/roles", a.handleRoleList)
	a.mux.HandleFunc("POST /v1/stores/{id}/roles", a.handleRoleCreate)
	a.mux.HandleFunc("GET /v1/stores/{id}/roles/{rid}", a.handleRoleGet)
	a.mux.HandleFunc("PATCH /v1/stores/{id}/roles/{rid}", a.handleRoleUpdate)
	a.mux.HandleFunc("POST /v1/stores/{id}/roles/{rid}/deactivate", a.handleRoleDeactivate)
	a.mux.HandleFunc("DELETE /v1/stores/{id}/roles/{rid}", a.handleRoleDelete)

	a.mux.HandleFunc("POST /v1/stores/{id}/orders", a.handleOrderCreate)
	a.mux.HandleFunc("GET /v1/stores/{id}/orders", a.handleOrderListByStore)
	a.mux.HandleFunc("GET /v1/orders", a.handleOrderListOwn)
	a.mux.HandleFunc("GET /v1/orders/{id}", a.handleOrderGet)
	a.mux.HandleFunc("POST /v1/orders/{id}/transitions", a.handleOrderTransition)
	a.mux.HandleFunc("POST /v1/orders/{id}/payment-proof", a.handlePaymentProof)

	a.mux.HandleFunc("GET /v1/stores/{id}/audit", a.handleAuditList)
	a.mux.HandleFunc("GET /v1/stores/{id}/events", a.StreamEvents)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return a
}

// Handler wraps the mux with authn and metrics.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.withAuth(a.mux))
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "bazara-api",
		"version": a.cfg.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.cfg.Ready.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// handleFault maps the shared taxonomy onto HTTP statuses. Unknown errors are
// logged and masked.
func handleFault(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fault.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, fault.ErrAccountDisabled):
		writeError(w, http.StatusForbidden, "account disabled")
	case errors.Is(err, fault.ErrNoStoreAccess):
		writeError(w, http.StatusForbidden, "no access to this store")
	case errors.Is(err, fault.ErrPermissionNotGranted):
		writeError(w, http.StatusForbidden, "permission not granted")
	case errors.Is(err, fault.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, fault.ErrValidationFailed):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, fault.ErrIllegalTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, fault.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "resource was modified concurrently, retry")
	case errors.Is(err, fault.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		obs.Logger().Printf(`{"level":"error","msg":"internal error","err":%q}`, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// tenant extracts the resolved tenant context or writes 401.
func tenant(w http.ResponseWriter, r *http.Request) (auth.TenantContext, bool) {
	tc, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return auth.TenantContext{}, false
	}
	return tc, true
}
