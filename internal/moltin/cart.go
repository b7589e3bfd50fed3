package moltin

import (
	"context"
	"net/http"

	"github.com/grepto/pizza-bot/internal/order"
)

// AddCartItem puts quantity units of a catalog product into the cart.
func (c *Client) AddCartItem(ctx context.Context, cartID, productID string, quantity int) error {
	body := map[string]any{
		"data": map[string]any{
			"type":     "cart_item",
			"id":       productID,
			"quantity": quantity,
		},
	}
	return c.do(ctx, http.MethodPost, "/carts/"+cartID+"/items", nil, body, nil)
}

// AddCustomItem puts an ad-hoc priced line into the cart. The bot uses it
// for the delivery fee.
func (c *Client) AddCustomItem(ctx context.Context, cartID, name, sku string, priceMinor int64) error {
	body := map[string]any{
		"data": map[string]any{
			"type":     "custom_item",
			"name":     name,
			"sku":      sku,
			"quantity": 1,
			"price": map[string]any{
				"amount": priceMinor,
			},
		},
	}
	return c.do(ctx, http.MethodPost, "/carts/"+cartID+"/items", nil, body, nil)
}

// RemoveCartItem deletes a single line from the cart.
func (c *Client) RemoveCartItem(ctx context.Context, cartID, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/carts/"+cartID+"/items/"+itemID, nil, nil, nil)
}

// DeleteCart drops the whole cart.
func (c *Client) DeleteCart(ctx context.Context, cartID string) error {
	return c.do(ctx, http.MethodDelete, "/carts/"+cartID, nil, nil, nil)
}

// Cart fetches the cart contents and total.
func (c *Client) Cart(ctx context.Context, cartID string) (order.Cart, error) {
	var resp cartResponse
	if err := c.do(ctx, http.MethodGet, "/carts/"+cartID+"/items", nil, nil, &resp); err != nil {
		return order.Cart{}, err
	}

	cart := order.Cart{
		TotalMinor:     resp.Meta.DisplayPrice.WithTax.Amount,
		TotalFormatted: resp.Meta.DisplayPrice.WithTax.Formatted,
	}
	for _, item := range resp.Data {
		cart.Lines = append(cart.Lines, order.CartLine{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			SKU:                item.SKU,
			Name:               item.Name,
			Description:        item.Description,
			Quantity:           item.Quantity,
			UnitPriceMinor:     item.UnitPrice.Amount,
			UnitPriceFormatted: item.Meta.DisplayPrice.WithTax.Unit.Formatted,
			TotalFormatted:     item.Meta.DisplayPrice.WithTax.Value.Formatted,
			ImageURL:           item.Image.Href,
		})
	}
	return cart, nil
}
