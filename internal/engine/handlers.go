package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/grepto/pizza-bot/core/logger"
	"github.com/grepto/pizza-bot/internal/delivery"
	"github.com/grepto/pizza-bot/internal/geo"
	"github.com/grepto/pizza-bot/internal/moltin"
	"github.com/grepto/pizza-bot/internal/order"
	"github.com/grepto/pizza-bot/internal/state"
)

const (
	addressPrompt    = "Send us your delivery address as text, or share your location."
	addressNotFound  = "Sorry, we could not recognize that address. Try again, or share your location."
	addedToCartAck   = "Added to cart"
	paymentReminder  = "Please complete the payment using the invoice above."
	orderConfirmText = "Thank you for your order! We are already cooking it."
	followUpText     = "Enjoy your pizza! If your order has not arrived, contact support and your next pizza is on us."
)

func (e *Engine) handleStart(ctx context.Context, userID string) (state.State, error) {
	if err := e.showMenu(ctx, userID, 0, ""); err != nil {
		return state.Start, err
	}
	return state.Menu, nil
}

func (e *Engine) handleMenu(ctx context.Context, userID string, ev Event) (state.State, error) {
	switch ev := ev.(type) {
	case Postback:
		switch ev.Payload.Kind {
		case KindPage:
			if err := e.showMenu(ctx, userID, ev.Payload.Page, ev.Payload.CategoryID); err != nil {
				return state.Menu, err
			}
			return state.Menu, nil
		case KindCategory:
			if err := e.showMenu(ctx, userID, 0, ev.Payload.CategoryID); err != nil {
				return state.Menu, err
			}
			return state.Menu, nil
		case KindOpenCart:
			if err := e.showCart(ctx, userID); err != nil {
				return state.Menu, err
			}
			return state.Cart, nil
		case KindAddToCart:
			if err := e.addToCart(ctx, userID, ev.Payload.ProductID); err != nil {
				return state.Menu, err
			}
			return state.Menu, nil
		}
		// Unknown button payloads re-prompt in place.
		if err := e.showMenu(ctx, userID, 0, ""); err != nil {
			return state.Menu, err
		}
		return state.Menu, nil
	case MenuSelection:
		if err := e.showProductDetail(ctx, userID, ev.ProductID); err != nil {
			return state.Menu, err
		}
		return state.ProductDetail, nil
	default:
		if err := e.showMenu(ctx, userID, 0, ""); err != nil {
			return state.Menu, err
		}
		return state.Menu, nil
	}
}

func (e *Engine) handleProductDetail(ctx context.Context, userID string, ev Event) (state.State, error) {
	switch ev := ev.(type) {
	case Postback:
		switch ev.Payload.Kind {
		case KindBackToMenu:
			if err := e.showMenu(ctx, userID, 0, ""); err != nil {
				return state.ProductDetail, err
			}
			return state.Menu, nil
		case KindAddToCart:
			if err := e.addToCart(ctx, userID, ev.Payload.ProductID); err != nil {
				return state.ProductDetail, err
			}
			return state.ProductDetail, nil
		case KindOpenCart:
			if err := e.showCart(ctx, userID); err != nil {
				return state.ProductDetail, err
			}
			return state.Cart, nil
		}
		if err := e.showMenu(ctx, userID, 0, ""); err != nil {
			return state.ProductDetail, err
		}
		return state.Menu, nil
	case MenuSelection:
		if err := e.showProductDetail(ctx, userID, ev.ProductID); err != nil {
			return state.ProductDetail, err
		}
		return state.ProductDetail, nil
	default:
		if err := e.showMenu(ctx, userID, 0, ""); err != nil {
			return state.ProductDetail, err
		}
		return state.Menu, nil
	}
}

func (e *Engine) handleCart(ctx context.Context, userID string, ev Event) (state.State, error) {
	if pb, ok := ev.(Postback); ok {
		switch pb.Payload.Kind {
		case KindRemoveItem:
			if err := e.carts.RemoveCartItem(ctx, e.cartID(userID), pb.Payload.CartItemID); err != nil {
				return state.Cart, remoteErr("remove cart item", err)
			}
		case KindBackToMenu:
			if err := e.showMenu(ctx, userID, 0, ""); err != nil {
				return state.Cart, err
			}
			return state.Menu, nil
		case KindCheckout:
			if err := e.renderer.SendText(ctx, userID, addressPrompt); err != nil {
				return state.Cart, remoteErr("send address prompt", err)
			}
			return state.LocationRequest, nil
		case KindAddToCart:
			if err := e.carts.AddCartItem(ctx, e.cartID(userID), pb.Payload.ProductID, 1); err != nil {
				return state.Cart, remoteErr("add cart item", err)
			}
		}
	}
	if err := e.showCart(ctx, userID); err != nil {
		return state.Cart, err
	}
	return state.Cart, nil
}

func (e *Engine) handleLocationRequest(ctx context.Context, userID string, ev Event) (state.State, error) {
	switch ev := ev.(type) {
	case LocationShared:
		return e.offerDelivery(ctx, userID, geo.Point{Lon: ev.Lon, Lat: ev.Lat})
	case TextMessage:
		point, found, err := e.geocoder.Locate(ctx, ev.Body)
		if err != nil {
			return state.LocationRequest, remoteErr("geocode address", err)
		}
		if !found {
			if err := e.renderer.SendText(ctx, userID, addressNotFound); err != nil {
				return state.LocationRequest, remoteErr("send address retry prompt", err)
			}
			return state.LocationRequest, nil
		}
		return e.offerDelivery(ctx, userID, point)
	default:
		if err := e.renderer.SendText(ctx, userID, addressPrompt); err != nil {
			return state.LocationRequest, remoteErr("send address prompt", err)
		}
		return state.LocationRequest, nil
	}
}

func (e *Engine) handleDeliveryOptions(ctx context.Context, userID string, ev Event) (state.State, error) {
	pb, ok := ev.(Postback)
	if !ok {
		if err := e.renderer.SendText(ctx, userID, "Choose delivery or pickup using the buttons above."); err != nil {
			return state.DeliveryOptions, remoteErr("send delivery reminder", err)
		}
		return state.DeliveryOptions, nil
	}

	switch pb.Payload.Kind {
	case KindDelivery:
		loc := moltin.CustomerLocation{
			CustomerID:         userID,
			Lon:                pb.Payload.Lon,
			Lat:                pb.Payload.Lat,
			DeliveryPriceMinor: pb.Payload.PriceMinor,
		}
		if err := e.locations.SaveCustomerLocation(ctx, loc); err != nil {
			return state.DeliveryOptions, remoteErr("save customer location", err)
		}
		if pb.Payload.PriceMinor > 0 {
			if err := order.AddDeliveryToCart(ctx, e.carts, e.cartID(userID), pb.Payload.PriceMinor); err != nil {
				return state.DeliveryOptions, remoteErr("add delivery line", err)
			}
		}
		return e.sendInvoice(ctx, userID)
	case KindPickup:
		address, err := e.pizzeriaAddress(ctx, pb.Payload.PizzeriaID)
		if err != nil {
			return state.DeliveryOptions, err
		}
		text := "You can pick up your order here: " + address
		if err := e.renderer.SendText(ctx, userID, text); err != nil {
			return state.DeliveryOptions, remoteErr("send pickup address", err)
		}
		return state.Finish, nil
	case KindChangeAddress:
		if err := e.renderer.SendText(ctx, userID, addressPrompt); err != nil {
			return state.DeliveryOptions, remoteErr("send address prompt", err)
		}
		return state.LocationRequest, nil
	default:
		return state.DeliveryOptions, inputErr("delivery options",
			fmt.Errorf("unexpected payload kind %q", pb.Payload.Kind))
	}
}

func (e *Engine) handleWaitingPayment(ctx context.Context, userID string, ev Event) (state.State, error) {
	switch ev := ev.(type) {
	case PaymentCompleted:
		return e.finalizeOrder(ctx, userID)
	case Postback:
		if ev.Payload.Kind == KindPay {
			return e.sendInvoice(ctx, userID)
		}
		if err := e.renderer.SendText(ctx, userID, paymentReminder); err != nil {
			return state.WaitingPayment, remoteErr("send payment reminder", err)
		}
		return state.WaitingPayment, nil
	default:
		if err := e.renderer.SendText(ctx, userID, paymentReminder); err != nil {
			return state.WaitingPayment, remoteErr("send payment reminder", err)
		}
		return state.WaitingPayment, nil
	}
}

// finalizeOrder hands the paid order to the courier of the pizzeria
// nearest to the customer's latest stored location, confirms to the user,
// clears the cart, and schedules the follow-up message.
func (e *Engine) finalizeOrder(ctx context.Context, userID string) (state.State, error) {
	loc, found, err := e.locations.LatestCustomerLocation(ctx, userID)
	if err != nil {
		return state.WaitingPayment, remoteErr("load customer location", err)
	}
	if !found {
		return state.WaitingPayment, remoteErr("load customer location",
			errors.New("no stored location for paid order"))
	}

	pizzeria, _, err := e.nearestPizzeria(ctx, geo.Point{Lon: loc.Lon, Lat: loc.Lat})
	if err != nil {
		return state.WaitingPayment, err
	}

	cartID := e.cartID(userID)
	cart, err := e.carts.Cart(ctx, cartID)
	if err != nil {
		return state.WaitingPayment, remoteErr("fetch cart", err)
	}

	courierText := "New order!\n\n" + order.CartText(cart)
	if err := e.renderer.NotifyCourier(ctx, pizzeria.CourierID, courierText, loc.Lon, loc.Lat); err != nil {
		return state.WaitingPayment, remoteErr("notify courier", err)
	}
	if err := e.renderer.SendText(ctx, userID, orderConfirmText); err != nil {
		return state.WaitingPayment, remoteErr("send confirmation", err)
	}
	if err := e.carts.DeleteCart(ctx, cartID); err != nil {
		return state.WaitingPayment, remoteErr("delete cart", err)
	}

	e.scheduler.After(e.followUpDelay, func() {
		ctx := context.Background()
		if err := e.renderer.SendText(ctx, userID, followUpText); err != nil {
			logger.Warn(ctx, component, "follow_up_failed",
				slog.String("user", userID), slog.Any("error", err))
		}
	})
	return state.Finish, nil
}

func (e *Engine) addToCart(ctx context.Context, userID, productID string) error {
	if productID == "" {
		return inputErr("add to cart", errors.New("empty product id"))
	}
	if err := e.carts.AddCartItem(ctx, e.cartID(userID), productID, 1); err != nil {
		return remoteErr("add cart item", err)
	}
	if err := e.renderer.Ack(ctx, userID, addedToCartAck); err != nil {
		return remoteErr("ack add to cart", err)
	}
	return nil
}

func (e *Engine) showMenu(ctx context.Context, userID string, page int, categoryID string) error {
	if categoryID == "" {
		categoryID = e.defaultCategory
	}
	products, err := e.catalog.Products(ctx)
	if err != nil {
		return remoteErr("list products", err)
	}
	categories, err := e.catalog.Categories(ctx)
	if err != nil {
		return remoteErr("list categories", err)
	}

	if categoryID != "" {
		var filtered []moltin.Product
		for _, p := range products {
			for _, id := range p.CategoryIDs {
				if id == categoryID {
					filtered = append(filtered, p)
					break
				}
			}
		}
		products = filtered
	}

	if page < 0 || page*menuPageSize >= len(products) {
		page = 0
	}
	start := page * menuPageSize
	end := start + menuPageSize
	if end > len(products) {
		end = len(products)
	}

	view := MenuView{
		Products:   products[start:end],
		Categories: categories,
		CategoryID: categoryID,
		Page:       page,
		HasPrev:    page > 0,
		HasNext:    end < len(products),
	}
	if err := e.renderer.SendMenu(ctx, userID, view); err != nil {
		return remoteErr("render menu", err)
	}
	return nil
}

func (e *Engine) showProductDetail(ctx context.Context, userID, productID string) error {
	if productID == "" {
		return inputErr("show product", errors.New("empty product id"))
	}
	product, err := e.catalog.Product(ctx, productID)
	if err != nil {
		return remoteErr("fetch product", err)
	}
	view := ProductView{Product: product}
	if product.ImageID != "" {
		url, err := e.catalog.ImageURL(ctx, product.ImageID)
		if err != nil {
			return remoteErr("resolve product image", err)
		}
		view.ImageURL = url
	}
	if err := e.renderer.SendProductDetail(ctx, userID, view); err != nil {
		return remoteErr("render product", err)
	}
	return nil
}

func (e *Engine) showCart(ctx context.Context, userID string) error {
	cart, err := e.carts.Cart(ctx, e.cartID(userID))
	if err != nil {
		return remoteErr("fetch cart", err)
	}
	view := CartView{Cart: cart, Text: order.CartText(cart)}
	if err := e.renderer.SendCart(ctx, userID, view); err != nil {
		return remoteErr("render cart", err)
	}
	return nil
}

// offerDelivery quotes the resolved customer location against the nearest
// pizzeria and presents the delivery, pickup and change-address choices.
func (e *Engine) offerDelivery(ctx context.Context, userID string, point geo.Point) (state.State, error) {
	pizzeria, distanceKm, err := e.nearestPizzeria(ctx, point)
	if err != nil {
		return state.LocationRequest, err
	}

	quote := delivery.QuoteFor(pizzeria.ID, distanceKm, e.tiers)
	view := DeliveryView{
		Deliverable: quote.Deliverable(),
		Lon:         point.Lon,
		Lat:         point.Lat,
		PizzeriaID:  quote.PizzeriaID,
	}
	switch {
	case quote.Deliverable() && *quote.PriceMinor == 0:
		view.Text = fmt.Sprintf("You are right next to our pizzeria at %s. Delivery is free, or pick the order up yourself.",
			pizzeria.Address)
	case quote.Deliverable():
		view.PriceMinor = *quote.PriceMinor
		view.Text = fmt.Sprintf("The nearest pizzeria is %.1f km away. We can deliver for %s, or you can pick the order up at %s.",
			quote.DistanceKm, formatMinor(*quote.PriceMinor), pizzeria.Address)
	default:
		view.Text = fmt.Sprintf("You are %.1f km away from the nearest pizzeria, which is too far for delivery. You can pick the order up at %s.",
			quote.DistanceKm, pizzeria.Address)
	}

	if err := e.renderer.SendDeliveryOptions(ctx, userID, view); err != nil {
		return state.LocationRequest, remoteErr("render delivery options", err)
	}
	return state.DeliveryOptions, nil
}

func (e *Engine) sendInvoice(ctx context.Context, userID string) (state.State, error) {
	cart, err := e.carts.Cart(ctx, e.cartID(userID))
	if err != nil {
		return state.DeliveryOptions, remoteErr("fetch cart", err)
	}
	lines := order.InvoiceLines(cart)
	if len(lines) == 0 {
		if err := e.renderer.SendText(ctx, userID, "Your cart is empty."); err != nil {
			return state.DeliveryOptions, remoteErr("send empty cart notice", err)
		}
		if err := e.showMenu(ctx, userID, 0, ""); err != nil {
			return state.DeliveryOptions, err
		}
		return state.Menu, nil
	}

	view := InvoiceView{
		Title:       "Pizza order",
		Description: "Payment for your pizza order",
		Payload:     invoicePayload,
		Lines:       lines,
	}
	if err := e.renderer.SendInvoice(ctx, userID, view); err != nil {
		return state.DeliveryOptions, remoteErr("send invoice", err)
	}
	return state.WaitingPayment, nil
}

func (e *Engine) nearestPizzeria(ctx context.Context, point geo.Point) (moltin.Pizzeria, float64, error) {
	pizzerias, err := e.locations.Pizzerias(ctx)
	if err != nil {
		return moltin.Pizzeria{}, 0, remoteErr("list pizzerias", err)
	}
	sites := make([]geo.Site, 0, len(pizzerias))
	for _, p := range pizzerias {
		sites = append(sites, geo.Site{ID: p.ID, Point: geo.Point{Lon: p.Lon, Lat: p.Lat}})
	}
	nearest, distanceKm, ok := geo.Nearest(point, sites)
	if !ok {
		return moltin.Pizzeria{}, 0, remoteErr("nearest pizzeria", errors.New("no pizzerias configured"))
	}
	for _, p := range pizzerias {
		if p.ID == nearest.ID {
			return p, distanceKm, nil
		}
	}
	return moltin.Pizzeria{}, 0, remoteErr("nearest pizzeria", errors.New("pizzeria lookup inconsistent"))
}

func (e *Engine) pizzeriaAddress(ctx context.Context, pizzeriaID string) (string, error) {
	pizzerias, err := e.locations.Pizzerias(ctx)
	if err != nil {
		return "", remoteErr("list pizzerias", err)
	}
	for _, p := range pizzerias {
		if p.ID == pizzeriaID {
			return p.Address, nil
		}
	}
	return "", inputErr("pickup", fmt.Errorf("unknown pizzeria %q", pizzeriaID))
}

// formatMinor renders a minor-unit amount as a decimal price string.
func formatMinor(m int64) string {
	return fmt.Sprintf("%.2f", float64(m)/100)
}
