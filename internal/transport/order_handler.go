package transport

import (
	"net/http"

	"storefront-be/internal/order"
)

type updateStatusRequest struct {
	Status order.OrderStatus `json:"status" validate:"required,oneof=Processing Shipped Delivered Cancelled"`
}

type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	orders, err := h.svc.ListOrders(r.Context(), user.ID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	WriteJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	id, err := uuidParam(r, "orderID")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	o, err := h.svc.GetOrder(r.Context(), user, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "orderID")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	o, err := h.svc.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, o)
}
