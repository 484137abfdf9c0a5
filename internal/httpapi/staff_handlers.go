package httpapi

import (
	"net/http"
	"strings"

	"bazara.org/internal/access"
	"bazara.org/internal/auth"
	"bazara.org/internal/ids"
	"bazara.org/internal/shop"
)

type staffInviteRequest struct {
	Email   string `json:"email"`
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
}

type staffRoleRequest struct {
	CustomRoleID string `json:"custom_role_id"`
}

// handleStaffInvite creates a pending assignment. The invitee is addressed by
// actor id or by email; the membership only grants access once accepted.
func (a *API) handleStaffInvite(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	storeID := r.PathValue("id")
	if !a.authorizeScoped(w, r, tc, access.PermUserCreate, storeID) {
		return
	}
	var req staffInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil || (role != auth.RoleAdmin && role != auth.RoleVendor) {
		writeError(w, http.StatusBadRequest, "staff role must be admin or vendor")
		return
	}

	actorID := strings.TrimSpace(req.ActorID)
	if actorID == "" {
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" {
			writeError(w, http.StatusBadRequest, "actor_id or email is required")
			return
		}
		actor, err := a.cfg.Actors.FindByEmail(r.Context(), email)
		if err != nil {
			handleFault(w, err)
			return
		}
		actorID = actor.ID
	}

	asg := &shop.StoreAssignment{
		ID:         ids.New(),
		StoreID:    storeID,
		ActorID:    actorID,
		Role:       role,
		AssignedBy: tc.ActorID,
		Status:     shop.AssignmentPending,
	}
	if err := a.cfg.Assignments.Create(r.Context(), asg); err != nil {
		handleFault(w, err)
		return
	}
	a.appendAudit(r, tc, storeID, "staff.invite", "store_assignment", asg.ID)
	writeJSON(w, http.StatusCreated, asg)
}

func (a *API) handleStaffList(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	storeID := r.PathValue("id")
	if !a.authorizeScoped(w, r, tc, access.PermUserView, storeID) {
		return
	}
	list, err := a.cfg.Assignments.ListByStore(r.Context(), storeID)
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"staff": list})
}

// handleStaffAccept activates the caller's own pending invite. No permission
// check: before acceptance the invitee has no grants in the store at all.
func (a *API) handleStaffAccept(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	storeID := r.PathValue("id")
	if err := a.cfg.Assignments.Accept(r.Context(), storeID, tc.ActorID); err != nil {
		handleFault(w, err)
		return
	}
	a.appendAudit(r, tc, storeID, "staff.accept", "store_assignment", tc.ActorID)
	writeJSON(w, http.StatusOK, map[string]any{"status": "active"})
}

func (a *API) handleStaffRevoke(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	storeID := r.PathValue("id")
	actorID := r.PathValue("actor")
	if !a.authorizeScoped(w, r, tc, access.PermUserDelete, storeID) {
		return
	}
	if err := a.cfg.Assignments.Revoke(r.Context(), storeID, actorID, tc.ActorID); err != nil {
		handleFault(w, err)
		return
	}
	a.appendAudit(r, tc, storeID, "staff.revoke", "store_assignment", actorID)
	w.WriteHeader(http.StatusNoContent)
}

// handleStaffSetRole attaches a custom role to an assignment, or clears it
// when custom_role_id is empty.
func (a *API) handleStaffSetRole(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	storeID := r.PathValue("id")
	actorID := r.PathValue("actor")
	if !a.authorizeScoped(w, r, tc, access.PermUserUpdate, storeID) {
		return
	}
	var req staffRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.cfg.Assignments.SetCustomRole(r.Context(), storeID, actorID, strings.TrimSpace(req.CustomRoleID)); err != nil {
		handleFault(w, err)
		return
	}
	a.appendAudit(r, tc, storeID, "staff.set_role", "store_assignment", actorID)
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}
