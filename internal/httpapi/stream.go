package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bazara.org/internal/access"
)

// StreamEvents serves order transition events for one store over SSE.
func (a *API) StreamEvents(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	storeID := r.PathValue("id")
	if !a.authorizeScoped(w, r, tc, access.PermOrderView, storeID) {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := a.cfg.Stream.Subscribe(r.Context(), storeID)
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case evt, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: order_transition\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
