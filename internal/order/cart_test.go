package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productLine(id, name string, qty int, unitMinor int64) CartLine {
	return CartLine{
		ID:                 id,
		ProductID:          "prod-" + id,
		SKU:                "sku-" + id,
		Name:               name,
		Description:        name + " description",
		Quantity:           qty,
		UnitPriceMinor:     unitMinor,
		UnitPriceFormatted: "$5.00",
		TotalFormatted:     "$10.00",
	}
}

func deliveryLine(priceMinor int64) CartLine {
	return CartLine{
		ID:             "dl",
		SKU:            DeliverySKU,
		Name:           DeliveryItemName,
		Quantity:       1,
		UnitPriceMinor: priceMinor,
		TotalFormatted: "$1.00",
	}
}

// fakeCartService records custom items appended to an in-memory cart.
type fakeCartService struct {
	cart     Cart
	addCalls int
}

func (f *fakeCartService) Cart(context.Context, string) (Cart, error) {
	return f.cart, nil
}

func (f *fakeCartService) AddCustomItem(_ context.Context, _, name, sku string, priceMinor int64) error {
	f.addCalls++
	f.cart.Lines = append(f.cart.Lines, CartLine{
		ID:             "custom",
		SKU:            sku,
		Name:           name,
		Quantity:       1,
		UnitPriceMinor: priceMinor,
	})
	return nil
}

func TestAddDeliveryToCartIdempotent(t *testing.T) {
	svc := &fakeCartService{cart: Cart{Lines: []CartLine{productLine("a", "Pepperoni", 2, 500)}}}

	require.NoError(t, AddDeliveryToCart(context.Background(), svc, "cart-1", 100))
	require.NoError(t, AddDeliveryToCart(context.Background(), svc, "cart-1", 100))

	assert.Equal(t, 1, svc.addCalls)
	var deliveries int
	for _, l := range svc.cart.Lines {
		if l.IsDelivery() {
			deliveries++
		}
	}
	assert.Equal(t, 1, deliveries)
}

func TestCartTextEmpty(t *testing.T) {
	assert.Empty(t, CartText(Cart{}))
}

func TestCartTextDeliveryOnlyIsEmpty(t *testing.T) {
	// A cart holding only the delivery charge displays as empty.
	cart := Cart{Lines: []CartLine{deliveryLine(100)}, TotalFormatted: "$1.00"}
	assert.Empty(t, CartText(cart))
}

func TestCartTextSingleLineNoDelivery(t *testing.T) {
	cart := Cart{
		Lines:          []CartLine{productLine("a", "Pepperoni", 2, 500)},
		TotalFormatted: "$10.00",
	}
	text := CartText(cart)
	require.NotEmpty(t, text)

	assert.Contains(t, text, "Pepperoni")
	assert.Contains(t, text, "2 x $5.00 = $10.00")
	assert.Contains(t, text, "Total: $10.00")
	assert.NotContains(t, text, DeliveryItemName)
}

func TestCartTextWithDelivery(t *testing.T) {
	cart := Cart{
		Lines: []CartLine{
			productLine("a", "Pepperoni", 2, 500),
			deliveryLine(100),
		},
		TotalFormatted: "$11.00",
	}
	text := CartText(cart)
	assert.Contains(t, text, "Delivery $1.00")
	assert.Contains(t, text, "Total: $11.00")
}

func TestInvoiceLinesOrder(t *testing.T) {
	cart := Cart{Lines: []CartLine{
		deliveryLine(100),
		productLine("a", "Pepperoni", 2, 500),
		productLine("b", "Margherita", 1, 700),
	}}

	lines := InvoiceLines(cart)
	require.Len(t, lines, 3)

	// Products first, delivery last, amounts from minor units.
	assert.Equal(t, InvoiceLine{Label: "Pepperoni x 2", AmountMinor: 1000}, lines[0])
	assert.Equal(t, InvoiceLine{Label: "Margherita x 1", AmountMinor: 700}, lines[1])
	assert.Equal(t, InvoiceLine{Label: DeliveryItemName, AmountMinor: 100}, lines[2])
}

func TestDeliverySKUDerivation(t *testing.T) {
	// The idempotency guarantee rests on this derivation matching how the
	// commerce service slugs custom item names.
	assert.Equal(t, "delivery", DeliverySKU)
}
