package httpapi

import (
	"net/http"
	"strings"
	"time"

	"bazara.org/internal/access"
	"bazara.org/internal/audit"
	"bazara.org/internal/auth"
	"bazara.org/internal/ids"
	"bazara.org/internal/shop"
)

type createStoreRequest struct {
	Name              string `json:"name"`
	Currency          string `json:"currency"`
	LowStockThreshold int64  `json:"low_stock_threshold"`
	BotToken          string `json:"bot_token"`
}

type updateStoreRequest struct {
	Name              *string `json:"name"`
	Status            *string `json:"status"`
	Currency          *string `json:"currency"`
	LowStockThreshold *int64  `json:"low_stock_threshold"`
}

// authorizeScoped runs one permission check against a store. Lack of any
// relationship to the store answers 404, a missing grant inside it 403.
func (a *API) authorizeScoped(w http.ResponseWriter, r *http.Request, tc auth.TenantContext, perm access.Permission, storeID string) bool {
	d, err := a.cfg.Engine.Authorize(r.Context(), tc, perm, storeID)
	if err != nil {
		handleFault(w, err)
		return false
	}
	if !d.Allowed {
		if d.Reason == access.ReasonNoStoreAccess {
			writeError(w, http.StatusNotFound, "resource not found")
			return false
		}
		handleFault(w, d.Err())
		return false
	}
	return true
}

func (a *API) appendAudit(r *http.Request, tc auth.TenantContext, storeID, action, resourceType, resourceID string) {
	err := a.cfg.AuditLog.Append(r.Context(), &audit.Record{
		ID:           ids.New(),
		OccurredAt:   time.Now().UTC(),
		ActorID:      tc.ActorID,
		StoreID:      storeID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	})
	if err != nil {
		_ = audit.LogEvent(r.Context(), "audit_append_failed", map[string]any{"action": action, "err": err.Error()})
	}
}

func (a *API) handleStoreCreate(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	if tc.Role != auth.RoleOwner {
		writeError(w, http.StatusForbidden, "only owners create stores")
		return
	}
	var req createStoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "store name is required")
		return
	}
	if req.Currency == "" {
		req.Currency = "KZT"
	}
	st := &shop.Store{
		ID:                ids.New(),
		OwnerID:           tc.ActorID,
		Name:              req.Name,
		Status:            shop.StoreActive,
		Currency:          req.Currency,
		LowStockThreshold: req.LowStockThreshold,
		BotToken:          req.BotToken,
	}
	if err := a.cfg.Stores.Create(r.Context(), st); err != nil {
		handleFault(w, err)
		return
	}
	a.appendAudit(r, tc, st.ID, "store.create", "store", st.ID)
	writeJSON(w, http.StatusCreated, st)
}

func (a *API) handleStoreList(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	stores, err := a.cfg.Stores.ListOwned(r.Context(), tc.ActorID)
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": stores})
}

func (a *API) handleStoreGet(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	storeID := r.PathValue("id")
	if !a.authorizeScoped(w, r, tc, access.PermStoreView, storeID) {
		return
	}
	st, err := a.cfg.Stores.Find(r.Context(), storeID)
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleStoreUpdate(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	storeID := r.PathValue("id")
	if !a.authorizeScoped(w, r, tc, access.PermStoreUpdate, storeID) {
		return
	}
	var req updateStoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	upd := shop.StoreUpdate{
		Name:              req.Name,
		Currency:          req.Currency,
		LowStockThreshold: req.LowStockThreshold,
	}
	if req.Status != nil {
		status, err := shop.ParseStoreStatus(*req.Status)
		if err != nil {
			handleFault(w, err)
			return
		}
		upd.Status = &status
	}
	st, err := a.cfg.Stores.Update(r.Context(), storeID, upd)
	if err != nil {
		handleFault(w, err)
		return
	}
	a.appendAudit(r, tc, storeID, "store.update", "store", storeID)
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleStoreDelete(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	storeID := r.PathValue("id")
	if !a.authorizeScoped(w, r, tc, access.PermStoreDelete, storeID) {
		return
	}
	if err := a.cfg.Stores.Delete(r.Context(), storeID); err != nil {
		handleFault(w, err)
		return
	}
	a.appendAudit(r, tc, storeID, "store.delete", "store", storeID)
	w.WriteHeader(http.StatusNoContent)
}
