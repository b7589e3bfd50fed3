// Package order holds the cart model shared by the commerce client and
// the conversation engine, plus the delivery-line reconciliation and
// cart text composition rules.
package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
)

// DeliveryItemName is the display name of the synthetic delivery line.
const DeliveryItemName = "Delivery"

// DeliverySKU identifies the synthetic delivery line inside a cart. It is
// derived from the display name the same way the commerce service derives
// custom item SKUs; the idempotency guarantee of AddDeliveryToCart rests
// on this derivation staying in sync with the service.
var DeliverySKU = slug.Make(DeliveryItemName)

// CartLine is a single priced cart entry as reported by the commerce service.
type CartLine struct {
	ID                 string
	ProductID          string
	SKU                string
	Name               string
	Description        string
	Quantity           int
	UnitPriceMinor     int64
	UnitPriceFormatted string
	TotalFormatted     string
	ImageURL           string
}

// IsDelivery reports whether the line is the synthetic delivery fee.
func (l CartLine) IsDelivery() bool {
	return l.SKU == DeliverySKU
}

// Cart is a read-mostly snapshot of a priced cart. It is fetched fresh on
// every cart-affecting step; callers must not cache it.
type Cart struct {
	Lines          []CartLine
	TotalMinor     int64
	TotalFormatted string
}

// ProductLines returns the cart lines excluding the delivery fee.
func (c Cart) ProductLines() []CartLine {
	var lines []CartLine
	for _, l := range c.Lines {
		if !l.IsDelivery() {
			lines = append(lines, l)
		}
	}
	return lines
}

// DeliveryLine returns the delivery fee line if the cart has one.
func (c Cart) DeliveryLine() (CartLine, bool) {
	for _, l := range c.Lines {
		if l.IsDelivery() {
			return l, true
		}
	}
	return CartLine{}, false
}

// CartService is the subset of the commerce client needed for delivery
// reconciliation.
type CartService interface {
	Cart(ctx context.Context, cartID string) (Cart, error)
	AddCustomItem(ctx context.Context, cartID, name, sku string, priceMinor int64) error
}

// AddDeliveryToCart appends the synthetic delivery line unless the cart
// already carries one, so retries never produce a second delivery charge.
func AddDeliveryToCart(ctx context.Context, svc CartService, cartID string, priceMinor int64) error {
	cart, err := svc.Cart(ctx, cartID)
	if err != nil {
		return fmt.Errorf("order: fetch cart %s: %w", cartID, err)
	}
	if _, ok := cart.DeliveryLine(); ok {
		return nil
	}
	if err := svc.AddCustomItem(ctx, cartID, DeliveryItemName, DeliverySKU, priceMinor); err != nil {
		return fmt.Errorf("order: add delivery to cart %s: %w", cartID, err)
	}
	return nil
}

// CartText renders the cart as chat text: one block per product line, an
// optional delivery row, and a grand total row. It returns "" when the
// cart has no product lines. A cart holding only a delivery charge is
// displayed as empty on purpose.
func CartText(c Cart) string {
	products := c.ProductLines()
	if len(products) == 0 {
		return ""
	}

	rows := make([]string, 0, len(products)+2)
	for _, l := range products {
		rows = append(rows, fmt.Sprintf("%s\n%s\n%d x %s = %s",
			l.Name, l.Description, l.Quantity, l.UnitPriceFormatted, l.TotalFormatted))
	}
	if delivery, ok := c.DeliveryLine(); ok {
		rows = append(rows, fmt.Sprintf("%s %s", delivery.Name, delivery.TotalFormatted))
	}
	rows = append(rows, fmt.Sprintf("Total: %s", c.TotalFormatted))

	return strings.Join(rows, "\n\n")
}

// InvoiceLine is a labeled amount for the payment provider.
type InvoiceLine struct {
	Label       string
	AmountMinor int64
}

// InvoiceLines builds the itemized invoice: product lines first, the
// delivery fee last. Amounts are minor units as stored in the cart.
func InvoiceLines(c Cart) []InvoiceLine {
	var lines []InvoiceLine
	for _, l := range c.ProductLines() {
		lines = append(lines, InvoiceLine{
			Label:       fmt.Sprintf("%s x %d", l.Name, l.Quantity),
			AmountMinor: l.UnitPriceMinor * int64(l.Quantity),
		})
	}
	if delivery, ok := c.DeliveryLine(); ok {
		lines = append(lines, InvoiceLine{Label: delivery.Name, AmountMinor: delivery.UnitPriceMinor})
	}
	return lines
}
