package handler

import (
	"net/http"

	"github.com/mmeshcher/orbit-portal/internal/model"
	"github.com/mmeshcher/orbit-portal/internal/service"
)

// ListProducts возвращает каталог с поиском по ?q=.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	products, err := h.service.ListProducts(r.Context(), actor, r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, "list products", err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProduct возвращает товар.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	p, err := h.service.GetProduct(r.Context(), actor, urlParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateProduct добавляет товар в каталог.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in service.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, "create product", err)
		return
	}
	p, err := h.service.CreateProduct(r.Context(), actor, in)
	if err != nil {
		h.writeError(w, r, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProduct частично обновляет товар.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var patch model.ProductPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.writeError(w, r, "update product", err)
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), actor, urlParam(r, "id"), patch)
	if err != nil {
		h.writeError(w, r, "update product", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProduct удаляет товар.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), actor, urlParam(r, "id")); err != nil {
		h.writeError(w, r, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCustomers возвращает клиентов с поиском по ?q=.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	customers, err := h.service.ListCustomers(r.Context(), actor, r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, "list customers", err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	c, err := h.service.GetCustomer(r.Context(), actor, urlParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in service.CustomerInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, "create customer", err)
		return
	}
	c, err := h.service.CreateCustomer(r.Context(), actor, in)
	if err != nil {
		h.writeError(w, r, "create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var patch model.CustomerPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.writeError(w, r, "update customer", err)
		return
	}
	c, err := h.service.UpdateCustomer(r.Context(), actor, urlParam(r, "id"), patch)
	if err != nil {
		h.writeError(w, r, "update customer", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteCustomer(r.Context(), actor, urlParam(r, "id")); err != nil {
		h.writeError(w, r, "delete customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
