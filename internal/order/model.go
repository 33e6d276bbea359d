package order

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"storefront-be/internal/cart"
	"storefront-be/internal/payment"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

var transitions = map[OrderStatus][]OrderStatus{
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ShippingAddress struct {
	FullName   string `json:"fullName" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"required,max=32"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state,omitempty" validate:"max=100"`
	PostalCode string `json:"postalCode,omitempty" validate:"max=20"`
	Country    string `json:"country" validate:"required,max=100"`
}

func (a ShippingAddress) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *ShippingAddress) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return errors.New("shipping address: unsupported column type")
	}
}

// Item is a frozen copy of a cart line at confirmation time.
type Item struct {
	ProductID     uuid.UUID `json:"productId"`
	Quantity      int       `json:"quantity"`
	SelectedColor string    `json:"selectedColor"`
	SelectedSize  string    `json:"selectedSize"`
	UnitPrice     int64     `json:"unitPrice"`
	Subtotal      int64     `json:"subtotal"`
}

type Order struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uint            `json:"userId"`
	Items            []Item          `json:"items"`
	ShippingAddress  ShippingAddress `json:"shippingAddress"`
	TotalAmount      int64           `json:"totalAmount"`
	PaymentStatus    payment.Status  `json:"paymentStatus"`
	PaymentReference string          `json:"paymentReference"`
	PaymentID        uuid.UUID       `json:"paymentId"`
	OrderStatus      OrderStatus     `json:"orderStatus"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// SnapshotItems copies cart lines so later cart mutations cannot reach the
// order.
func SnapshotItems(lines []cart.Item) []Item {
	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = Item{
			ProductID:     l.ProductID,
			Quantity:      l.Quantity,
			SelectedColor: l.SelectedColor,
			SelectedSize:  l.SelectedSize,
			UnitPrice:     l.UnitPrice,
			Subtotal:      l.LineSubtotal,
		}
	}
	return items
}
