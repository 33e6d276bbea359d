package checkout

import (
	"time"

	"storefront-be/internal/order"
	"storefront-be/internal/payment"

	"github.com/google/uuid"
)

const EventOrderConfirmed = "order.confirmed"

type OrderConfirmed struct {
	OrderID          uuid.UUID      `json:"orderId"`
	UserID           uint           `json:"userId"`
	PaymentReference string         `json:"paymentReference"`
	PaymentStatus    payment.Status `json:"paymentStatus"`
	TotalAmount      int64          `json:"totalAmount"`
	Items            []EventItem    `json:"items"`
	ConfirmedAt      time.Time      `json:"confirmedAt"`
}

type EventItem struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

func newOrderConfirmed(o *order.Order, at time.Time) OrderConfirmed {
	items := make([]EventItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = EventItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return OrderConfirmed{
		OrderID:          o.ID,
		UserID:           o.UserID,
		PaymentReference: o.PaymentReference,
		PaymentStatus:    o.PaymentStatus,
		TotalAmount:      o.TotalAmount,
		Items:            items,
		ConfirmedAt:      at.UTC(),
	}
}
