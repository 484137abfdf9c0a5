package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"bazara.org/internal/fault"
	"bazara.org/internal/order"
)

type createOrderRequest struct {
	Items []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type transitionRequest struct {
	Action          string `json:"action"`
	Reason          string `json:"reason"`
	Tracking        string `json:"tracking"`
	PaymentProofRef string `json:"payment_proof_ref"`
}

type paymentProofRequest struct {
	Ref string `json:"ref"`
}

func (a *API) handleOrderCreate(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items := make([]order.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, order.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	o, err := a.cfg.Orders.Create(r.Context(), tc, r.PathValue("id"), items)
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (a *API) handleOrderListByStore(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	orders, err := a.cfg.Orders.ListByStore(r.Context(), tc, r.PathValue("id"), queryLimit(r))
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (a *API) handleOrderListOwn(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	orders, err := a.cfg.Orders.ListOwn(r.Context(), tc, queryLimit(r))
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (a *API) handleOrderGet(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	o, err := a.cfg.Orders.Get(r.Context(), tc, r.PathValue("id"))
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// handleOrderTransition applies one lifecycle action. A transition that loses
// a write race is retried once against the refreshed state before the
// conflict is reported.
func (a *API) handleOrderTransition(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	action, err := order.ParseAction(req.Action)
	if err != nil {
		handleFault(w, err)
		return
	}
	payload := order.Payload{
		Reason:          req.Reason,
		Tracking:        req.Tracking,
		PaymentProofRef: req.PaymentProofRef,
	}
	o, err := a.cfg.Orders.Transition(r.Context(), tc, r.PathValue("id"), action, payload)
	if errors.Is(err, fault.ErrConcurrentModification) {
		o, err = a.cfg.Orders.Transition(r.Context(), tc, r.PathValue("id"), action, payload)
	}
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *API) handlePaymentProof(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	var req paymentProofRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, err := a.cfg.Orders.AttachPaymentProof(r.Context(), tc, r.PathValue("id"), req.Ref)
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
