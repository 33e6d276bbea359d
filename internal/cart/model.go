package cart

import (
	"slices"

	"github.com/google/uuid"
)

// ItemKey identifies a cart line. Two variants of one product are separate
// lines that draw on the same stock.
type ItemKey struct {
	ProductID     uuid.UUID `json:"productId" validate:"required"`
	SelectedColor string    `json:"selectedColor"`
	SelectedSize  string    `json:"selectedSize"`
}

type Item struct {
	ProductID     uuid.UUID `json:"productId"`
	Quantity      int       `json:"quantity"`
	SelectedColor string    `json:"selectedColor"`
	SelectedSize  string    `json:"selectedSize"`
	UnitPrice     int64     `json:"unitPrice"`
	LineSubtotal  int64     `json:"lineSubtotal"`
}

func (i Item) Key() ItemKey {
	return ItemKey{ProductID: i.ProductID, SelectedColor: i.SelectedColor, SelectedSize: i.SelectedSize}
}

// Cart amounts are whole major currency units.
type Cart struct {
	ID          uuid.UUID `json:"id"`
	UserID      uint      `json:"userId"`
	Items       []Item    `json:"items"`
	Subtotal    int64     `json:"subtotal"`
	DeliveryFee int64     `json:"deliveryFee"`
	TotalPrice  int64     `json:"totalPrice"`
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// Recalculate restores the derived totals after a mutation.
func (c *Cart) Recalculate(deliveryFee int64) {
	var subtotal int64
	for i := range c.Items {
		c.Items[i].LineSubtotal = c.Items[i].UnitPrice * int64(c.Items[i].Quantity)
		subtotal += c.Items[i].LineSubtotal
	}

	c.Subtotal = subtotal
	c.DeliveryFee = 0
	if len(c.Items) > 0 {
		c.DeliveryFee = deliveryFee
	}
	c.TotalPrice = c.Subtotal + c.DeliveryFee
}

// Clear empties the cart and zeroes every total.
func (c *Cart) Clear() {
	c.Items = []Item{}
	c.Subtotal = 0
	c.DeliveryFee = 0
	c.TotalPrice = 0
}

func (c *Cart) indexOf(key ItemKey) int {
	return slices.IndexFunc(c.Items, func(it Item) bool { return it.Key() == key })
}

func (c *Cart) Find(key ItemKey) (Item, bool) {
	if i := c.indexOf(key); i >= 0 {
		return c.Items[i], true
	}
	return Item{}, false
}

// Add appends a line or merges into the existing line for the same variant.
// A merged line takes the latest unit price.
func (c *Cart) Add(item Item, deliveryFee int64) {
	if i := c.indexOf(item.Key()); i >= 0 {
		c.Items[i].Quantity += item.Quantity
		c.Items[i].UnitPrice = item.UnitPrice
	} else {
		c.Items = append(c.Items, item)
	}
	c.Recalculate(deliveryFee)
}

func (c *Cart) SetQuantity(key ItemKey, qty int, deliveryFee int64) bool {
	i := c.indexOf(key)
	if i < 0 {
		return false
	}
	c.Items[i].Quantity = qty
	c.Recalculate(deliveryFee)
	return true
}

func (c *Cart) Remove(key ItemKey, deliveryFee int64) bool {
	i := c.indexOf(key)
	if i < 0 {
		return false
	}
	c.Items = slices.Delete(c.Items, i, i+1)
	c.Recalculate(deliveryFee)
	return true
}

// QuantityOf sums quantities across every variant line of a product.
func (c *Cart) QuantityOf(productID uuid.UUID) int {
	total := 0
	for _, it := range c.Items {
		if it.ProductID == productID {
			total += it.Quantity
		}
	}
	return total
}

// Clone returns a copy that shares no item storage with c.
func (c Cart) Clone() Cart {
	c.Items = slices.Clone(c.Items)
	if c.Items == nil {
		c.Items = []Item{}
	}
	return c
}
