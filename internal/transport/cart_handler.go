package transport

import (
	"net/http"

	"storefront-be/internal/cart"
)

type CartHandler struct {
	svc cart.Service
}

func NewCartHandler(svc cart.Service) *CartHandler {
	return &CartHandler{svc: svc}
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	c, err := h.svc.GetCart(r.Context(), user.ID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var in cart.AddItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	c, err := h.svc.AddItem(r.Context(), user.ID, in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var in cart.UpdateItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	c, err := h.svc.UpdateItemQuantity(r.Context(), user.ID, in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var key cart.ItemKey
	if err := decodeJSON(w, r, &key); err != nil {
		WriteError(w, r, err)
		return
	}

	c, err := h.svc.RemoveItem(r.Context(), user.ID, key)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	c, err := h.svc.ClearCart(r.Context(), user.ID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}
