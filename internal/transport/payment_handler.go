package transport

import (
	"context"
	"errors"
	"net/http"

	"storefront-be/internal/checkout"
	"storefront-be/internal/logger"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"

	"go.uber.org/zap"
)

// Checkout is implemented by *checkout.Engine.
type Checkout interface {
	Initialize(ctx context.Context, in checkout.InitializeInput) (*payment.InitializeResult, error)
	Verify(ctx context.Context, in checkout.VerifyInput) (*checkout.Result, error)
}

// ShippingCookies is implemented by *checkout.ShippingCookies.
type ShippingCookies interface {
	Encode(userID uint, addr order.ShippingAddress) (*http.Cookie, error)
	Decode(r *http.Request, userID uint) (*order.ShippingAddress, error)
	Clear() *http.Cookie
}

type initializeRequest struct {
	Amount          int64                 `json:"amount" validate:"gt=0,lte=92233720368547758"`
	ShippingAddress order.ShippingAddress `json:"shippingAddress"`
}

type verifyRequest struct {
	Reference   string `json:"reference" validate:"required,max=100"`
	TotalAmount int64  `json:"totalAmount" validate:"gt=0,lte=92233720368547758"`
}

type PaymentHandler struct {
	checkout Checkout
	cookies  ShippingCookies
}

func NewPaymentHandler(c Checkout, cookies ShippingCookies) *PaymentHandler {
	return &PaymentHandler{checkout: c, cookies: cookies}
}

func (h *PaymentHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var req initializeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	res, err := h.checkout.Initialize(r.Context(), checkout.InitializeInput{
		UserID: user.ID,
		Email:  user.Email,
		Amount: req.Amount,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	cookie, err := h.cookies.Encode(user.ID, req.ShippingAddress)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	http.SetCookie(w, cookie)

	WriteJSON(w, http.StatusOK, res)
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	// A missing or unusable cookie is fine for a retry of a committed
	// reference; the engine asks for the address only when it has to create
	// the order.
	addr, err := h.cookies.Decode(r, user.ID)
	switch {
	case errors.Is(err, checkout.ErrInvalidShippingCookie):
		logger.FromCtx(r.Context()).Info("ignoring invalid shipping cookie", zap.Error(err))
		addr = nil
	case errors.Is(err, checkout.ErrShippingAddressRequired):
		addr = nil
	case err != nil:
		WriteError(w, r, err)
		return
	}

	res, err := h.checkout.Verify(r.Context(), checkout.VerifyInput{
		UserID:          user.ID,
		Email:           user.Email,
		Reference:       req.Reference,
		ClaimedTotal:    req.TotalAmount,
		ShippingAddress: addr,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	http.SetCookie(w, h.cookies.Clear())
	if res.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	}
	WriteJSON(w, http.StatusOK, res)
}
