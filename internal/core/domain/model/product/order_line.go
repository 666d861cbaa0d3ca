package product

import (
	"allocation/internal/pkg/errs"
)

// OrderLine is an immutable value object describing one line of a customer
// order: the order it belongs to, the SKU wanted and the quantity. Two lines
// are the same line when all three fields match.
type OrderLine struct {
	orderID string
	sku     string
	qty     int

	isConstructed bool
}

// NewOrderLine creates a validated order line.
func NewOrderLine(orderID, sku string, qty int) (OrderLine, error) {
	if orderID == "" {
		return OrderLine{}, errs.NewValueIsRequiredError("order_id")
	}
	if sku == "" {
		return OrderLine{}, errs.NewValueIsRequiredError("sku")
	}
	if qty <= 0 {
		return OrderLine{}, errs.NewValueIsInvalidError("qty")
	}

	return OrderLine{
		orderID:       orderID,
		sku:           sku,
		qty:           qty,
		isConstructed: true,
	}, nil
}

// OrderID returns the identifier of the order this line belongs to.
func (l OrderLine) OrderID() string { return l.orderID }

// SKU returns the stock keeping unit wanted.
func (l OrderLine) SKU() string { return l.sku }

// Qty returns the quantity wanted.
func (l OrderLine) Qty() int { return l.qty }

// IsEqual reports whether two order lines describe the same order/SKU/qty.
func (l OrderLine) IsEqual(other OrderLine) bool {
	return l.orderID == other.orderID && l.sku == other.sku && l.qty == other.qty
}
