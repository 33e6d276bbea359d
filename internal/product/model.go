package product

import (
	"slices"

	"github.com/google/uuid"
)

// Product is a sellable item. Price is in whole major currency units and
// Quantity is the available stock, never negative.
type Product struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Price    int64     `json:"price"`
	Quantity int       `json:"quantity"`
	Colors   []string  `json:"colors"`
	Sizes    []string  `json:"sizes"`
}

// HasColor reports whether c is one of the product's colors. A product with
// no color enumeration accepts only the empty color.
func (p Product) HasColor(c string) bool {
	if len(p.Colors) == 0 {
		return c == ""
	}
	return slices.Contains(p.Colors, c)
}

func (p Product) HasSize(s string) bool {
	if len(p.Sizes) == 0 {
		return s == ""
	}
	return slices.Contains(p.Sizes, s)
}
