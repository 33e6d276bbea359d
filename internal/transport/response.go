package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"storefront-be/internal/auth"
	"storefront-be/internal/cart"
	"storefront-be/internal/checkout"
	"storefront-be/internal/inventory"
	"storefront-be/internal/lock"
	"storefront-be/internal/logger"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorBody struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Warn("failed to encode response", zap.Error(err))
	}
}

// WriteError maps err onto a status and a {"message"} body. Server-side
// failures are logged and their details withheld from the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	WriteJSON(w, status, errorBody{Message: msg})
}

func statusFor(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest, validationMessage(verrs)

	case errors.Is(err, errBadRequest),
		errors.Is(err, payment.ErrVerificationFailed),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrShippingAddressRequired),
		errors.Is(err, checkout.ErrInvalidShippingCookie),
		errors.Is(err, checkout.ErrInvalidAmount),
		errors.Is(err, checkout.ErrInvalidReference),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidVariant),
		errors.Is(err, order.ErrInvalidStatus):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, err.Error()

	case errors.Is(err, auth.ErrForbidden), errors.Is(err, checkout.ErrReferenceOwnership):
		return http.StatusForbidden, err.Error()

	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrCartItemNotFound),
		errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, payment.ErrPaymentNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, payment.ErrRefundFailed):
		return http.StatusInternalServerError, "an item went out of stock and the automatic refund failed; support has been notified"

	case errors.Is(err, inventory.ErrInsufficientStock):
		return http.StatusConflict, err.Error() + "; your payment has been refunded"

	case errors.Is(err, cart.ErrNotEnoughStock),
		errors.Is(err, order.ErrInvalidStatusTransition):
		return http.StatusConflict, err.Error()

	case errors.Is(err, lock.ErrNotAcquired):
		return http.StatusConflict, "this payment is already being verified, retry shortly"

	case errors.Is(err, payment.ErrGatewayUnavailable):
		return http.StatusBadGateway, "payment provider unavailable, retry shortly"

	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

func validationMessage(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return "invalid request: " + strings.Join(parts, ", ")
}

// decodeJSON reads one JSON object into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return validate.Struct(dst)
}
