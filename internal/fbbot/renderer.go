package fbbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/grepto/pizza-bot/internal/engine"
	"github.com/grepto/pizza-bot/internal/state"
)

// Renderer turns engine views into Messenger galleries. Product images
// come from the cached catalog snapshot because the live product listing
// carries file ids, not URLs.
type Renderer struct {
	client *Client
	menu   state.MenuCache
}

var _ engine.Renderer = (*Renderer)(nil)

// NewRenderer builds the Messenger renderer.
func NewRenderer(client *Client, menu state.MenuCache) *Renderer {
	return &Renderer{client: client, menu: menu}
}

func (r *Renderer) SendText(ctx context.Context, userID, text string) error {
	return r.client.SendText(ctx, userID, text)
}

// SendMenu renders a card carousel: a header card, one card per product
// on the page, and a closing card with category filters.
func (r *Renderer) SendMenu(ctx context.Context, userID string, view engine.MenuView) error {
	images := r.imageIndex(ctx)

	elements := []Element{{
		Title:    "Pizzeria",
		Subtitle: "Choose a pizza for delivery or pickup",
		Buttons: []Button{
			{Title: "🛒 Cart", Payload: engine.Payload{Kind: engine.KindOpenCart}.Encode()},
		},
	}}

	for _, p := range view.Products {
		elements = append(elements, Element{
			Title:    fmt.Sprintf("%s %s", p.Name, p.PriceFormatted),
			Subtitle: p.Description,
			ImageURL: images[p.ID],
			Buttons: []Button{{
				Title:   "Add to cart",
				Payload: engine.Payload{Kind: engine.KindAddToCart, ProductID: p.ID}.Encode(),
			}},
		})
	}

	if categories := categoryButtons(view); len(categories) > 0 {
		elements = append(elements, Element{
			Title:   "Not ready to choose?",
			Buttons: categories,
		})
	}

	return r.client.SendGallery(ctx, userID, elements)
}

// categoryButtons offers the other categories as filters, capped at the
// three buttons a card allows.
func categoryButtons(view engine.MenuView) []Button {
	var buttons []Button
	for _, c := range view.Categories {
		if c.ID == view.CategoryID {
			continue
		}
		buttons = append(buttons, Button{
			Title:   c.Name,
			Payload: engine.Payload{Kind: engine.KindCategory, CategoryID: c.ID}.Encode(),
		})
		if len(buttons) == 3 {
			break
		}
	}
	return buttons
}

func (r *Renderer) SendProductDetail(ctx context.Context, userID string, view engine.ProductView) error {
	element := Element{
		Title:    fmt.Sprintf("%s %s", view.Product.Name, view.Product.PriceFormatted),
		Subtitle: view.Product.Description,
		ImageURL: view.ImageURL,
		Buttons: []Button{
			{Title: "Add to cart", Payload: engine.Payload{Kind: engine.KindAddToCart, ProductID: view.Product.ID}.Encode()},
			{Title: "Back to menu", Payload: engine.Payload{Kind: engine.KindBackToMenu}.Encode()},
		},
	}
	return r.client.SendGallery(ctx, userID, []Element{element})
}

func (r *Renderer) SendCart(ctx context.Context, userID string, view engine.CartView) error {
	if view.Text == "" {
		return r.client.SendButtons(ctx, userID, "Your cart is empty.", []Button{
			{Title: "To the menu", Payload: engine.Payload{Kind: engine.KindBackToMenu}.Encode()},
		})
	}

	elements := []Element{{
		Title:    "Your order",
		Subtitle: "Total: " + view.Cart.TotalFormatted,
		Buttons: []Button{
			{Title: "Checkout", Payload: engine.Payload{Kind: engine.KindCheckout}.Encode()},
			{Title: "To the menu", Payload: engine.Payload{Kind: engine.KindBackToMenu}.Encode()},
		},
	}}
	for _, line := range view.Cart.ProductLines() {
		elements = append(elements, Element{
			Title:    fmt.Sprintf("%s x %d", line.Name, line.Quantity),
			Subtitle: line.TotalFormatted,
			ImageURL: line.ImageURL,
			Buttons: []Button{
				{Title: "Add one more", Payload: engine.Payload{Kind: engine.KindAddToCart, ProductID: line.ProductID}.Encode()},
				{Title: "Remove", Payload: engine.Payload{Kind: engine.KindRemoveItem, CartItemID: line.ID}.Encode()},
			},
		})
	}
	return r.client.SendGallery(ctx, userID, elements)
}

func (r *Renderer) SendDeliveryOptions(ctx context.Context, userID string, view engine.DeliveryView) error {
	var buttons []Button
	if view.Deliverable {
		buttons = append(buttons, Button{
			Title: "Delivery",
			Payload: engine.Payload{
				Kind:       engine.KindDelivery,
				PriceMinor: view.PriceMinor,
				Lon:        view.Lon,
				Lat:        view.Lat,
			}.Encode(),
		})
	}
	buttons = append(buttons,
		Button{Title: "Pickup", Payload: engine.Payload{Kind: engine.KindPickup, PizzeriaID: view.PizzeriaID}.Encode()},
		Button{Title: "Change address", Payload: engine.Payload{Kind: engine.KindChangeAddress}.Encode()},
	)
	return r.client.SendButtons(ctx, userID, view.Text, buttons)
}

// SendInvoice has no Messenger equivalent; the user gets a polite pointer
// to the Telegram bot instead.
func (r *Renderer) SendInvoice(ctx context.Context, userID string, view engine.InvoiceView) error {
	return r.client.SendText(ctx, userID,
		"Payments are not available on Messenger yet. Please order through our Telegram bot to pay online.")
}

// AnswerPrecheck is unreachable: this transport never produces payment
// events.
func (r *Renderer) AnswerPrecheck(context.Context, string, bool, string) error {
	return errors.New("fbbot: prechecks are not supported")
}

// NotifyCourier is unreachable for the same reason.
func (r *Renderer) NotifyCourier(context.Context, int64, string, float64, float64) error {
	return errors.New("fbbot: courier notification is not supported")
}

func (r *Renderer) Ack(ctx context.Context, userID, text string) error {
	return r.client.SendText(ctx, userID, text)
}

func (r *Renderer) imageIndex(ctx context.Context) map[string]string {
	menu, ok, err := r.menu.Menu(ctx)
	if err != nil || !ok {
		return nil
	}
	images := make(map[string]string, len(menu))
	for _, p := range menu {
		images[p.ID] = p.ImageURL
	}
	return images
}
