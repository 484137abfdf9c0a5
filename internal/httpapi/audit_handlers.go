package httpapi

import (
	"net/http"

	"bazara.org/internal/access"
)

func (a *API) handleAuditList(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	storeID := r.PathValue("id")
	if !a.authorizeScoped(w, r, tc, access.PermAuditView, storeID) {
		return
	}
	records, err := a.cfg.AuditLog.ListByStore(r.Context(), storeID, queryLimit(r))
	if err != nil {
		handleFault(w, err)
		return
	}

	// Optional narrowing to one resource, e.g. the history of a single order.
	resType := r.URL.Query().Get("resource_type")
	resID := r.URL.Query().Get("resource_id")
	if resType != "" || resID != "" {
		filtered := records[:0:0]
		for _, rec := range records {
			if resType != "" && rec.ResourceType != resType {
				continue
			}
			if resID != "" && rec.ResourceID != resID {
				continue
			}
			filtered = append(filtered, rec)
		}
		records = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}
