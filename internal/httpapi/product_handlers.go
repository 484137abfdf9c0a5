package httpapi

import (
	"net/http"
	"strings"

	"bazara.org/internal/ids"
	"bazara.org/internal/scoped"
	"bazara.org/internal/shop"
)

type createProductRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
	Stock    int64  `json:"stock"`
	Active   *bool  `json:"active"`
}

type updateProductRequest struct {
	Name    *string `json:"name"`
	Price   *int64  `json:"price"`
	Active  *bool   `json:"active"`
	Restock *int64  `json:"restock"`
}

func (a *API) handleProductList(w http.ResponseWriter, r *http.Request) {
	products, err := a.cfg.Products.FindMany(r.Context(), scoped.Where{StoreID: r.PathValue("id")}, scoped.ListOptions{})
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleProductCreate(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "product name is required")
		return
	}
	if req.Price < 0 || req.Stock < 0 {
		writeError(w, http.StatusBadRequest, "price and stock must not be negative")
		return
	}
	if req.Currency == "" {
		req.Currency = "KZT"
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	p := &shop.Product{
		ID:       ids.New(),
		StoreID:  r.PathValue("id"),
		Name:     req.Name,
		Price:    req.Price,
		Currency: req.Currency,
		Stock:    req.Stock,
		Active:   active,
	}
	created, err := a.cfg.Products.Create(r.Context(), p)
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleProductGet(w http.ResponseWriter, r *http.Request) {
	p, err := a.cfg.Products.FindUnique(r.Context(), scoped.Where{StoreID: r.PathValue("id"), ID: r.PathValue("pid")})
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleProductUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Price != nil && *req.Price < 0 {
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return
	}
	if req.Restock != nil && *req.Restock < 0 {
		writeError(w, http.StatusBadRequest, "stock must not be negative")
		return
	}
	upd := shop.ProductUpdate{
		Name:    req.Name,
		Price:   req.Price,
		Active:  req.Active,
		Restock: req.Restock,
	}
	p, err := a.cfg.Products.Update(r.Context(), scoped.Where{StoreID: r.PathValue("id"), ID: r.PathValue("pid")}, upd)
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleProductDelete(w http.ResponseWriter, r *http.Request) {
	err := a.cfg.Products.Delete(r.Context(), scoped.Where{StoreID: r.PathValue("id"), ID: r.PathValue("pid")})
	if err != nil {
		handleFault(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
