package httpapi

import (
	"net/http"

	"bazara.org/internal/access"
)

type createRoleRequest struct {
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	Permissions []string `json:"permissions"`
}

type updateRoleRequest struct {
	Name        *string  `json:"name"`
	Color       *string  `json:"color"`
	Permissions []string `json:"permissions"`
}

type deactivateRoleRequest struct {
	Reason string `json:"reason"`
}

func parsePermissions(raw []string) ([]access.Permission, error) {
	out := make([]access.Permission, 0, len(raw))
	for _, s := range raw {
		p, err := access.ParsePermission(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (a *API) handleRoleCreate(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	var req createRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	perms, err := parsePermissions(req.Permissions)
	if err != nil {
		handleFault(w, err)
		return
	}
	role, err := a.cfg.Roles.Create(r.Context(), tc, r.PathValue("id"), req.Name, req.Color, perms)
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (a *API) handleRoleList(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	roles, err := a.cfg.Roles.List(r.Context(), tc, r.PathValue("id"))
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (a *API) handleRoleGet(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	role, err := a.cfg.Roles.Get(r.Context(), tc, r.PathValue("id"), r.PathValue("rid"))
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (a *API) handleRoleUpdate(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	var req updateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	upd := access.CustomRoleUpdate{Name: req.Name, Color: req.Color}
	if req.Permissions != nil {
		perms, err := parsePermissions(req.Permissions)
		if err != nil {
			handleFault(w, err)
			return
		}
		upd.Permissions = perms
	}
	role, err := a.cfg.Roles.Update(r.Context(), tc, r.PathValue("id"), r.PathValue("rid"), upd)
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (a *API) handleRoleDeactivate(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	var req deactivateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.cfg.Roles.Deactivate(r.Context(), tc, r.PathValue("id"), r.PathValue("rid"), req.Reason); err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deactivated"})
}

func (a *API) handleRoleDelete(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	if err := a.cfg.Roles.Delete(r.Context(), tc, r.PathValue("id"), r.PathValue("rid")); err != nil {
		handleFault(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
