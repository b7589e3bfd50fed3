package tgbot

import (
	"context"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/grepto/pizza-bot/internal/engine"
)

// The Bot is the engine's Renderer for Telegram.
var _ engine.Renderer = (*Bot)(nil)

func (b *Bot) SendText(_ context.Context, userID, text string) error {
	to, err := recipient(userID)
	if err != nil {
		return err
	}
	_, err = b.bot.Send(to, text)
	return err
}

// SendMenu renders one menu page as an inline keyboard: a button per
// product, page navigation, and a cart shortcut. When the previous menu
// message is known it is edited in place instead of sending a new one.
func (b *Bot) SendMenu(_ context.Context, userID string, view engine.MenuView) error {
	to, err := recipient(userID)
	if err != nil {
		return err
	}

	var rows [][]InlineBtn
	for _, p := range view.Products {
		rows = append(rows, []InlineBtn{{
			Text:   fmt.Sprintf("%s %s", p.Name, p.PriceFormatted),
			Unique: cbProduct,
			Data:   p.ID,
		}})
	}

	var nav []InlineBtn
	if view.HasPrev {
		nav = append(nav, InlineBtn{
			Text:   "« Back",
			Unique: cbEvent,
			Data: engine.Payload{
				Kind: engine.KindPage, Page: view.Page - 1, CategoryID: view.CategoryID,
			}.Encode(),
		})
	}
	if view.HasNext {
		nav = append(nav, InlineBtn{
			Text:   "More »",
			Unique: cbEvent,
			Data: engine.Payload{
				Kind: engine.KindPage, Page: view.Page + 1, CategoryID: view.CategoryID,
			}.Encode(),
		})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []InlineBtn{{
		Text:   "🛒 Cart",
		Unique: cbEvent,
		Data:   engine.Payload{Kind: engine.KindOpenCart}.Encode(),
	}})

	markup := InlineButtonsRows(rows...)
	text := "Choose a pizza:"

	chatID, _ := strconv.ParseInt(userID, 10, 64)
	b.mu.Lock()
	last := b.lastMenu[chatID]
	b.mu.Unlock()
	if last != nil {
		if edited, err := b.bot.Edit(last, text, markup); err == nil {
			b.mu.Lock()
			b.lastMenu[chatID] = edited
			b.mu.Unlock()
			return nil
		}
	}

	msg, err := b.bot.Send(to, text, markup)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.lastMenu[chatID] = msg
	b.mu.Unlock()
	return nil
}

func (b *Bot) SendProductDetail(_ context.Context, userID string, view engine.ProductView) error {
	to, err := recipient(userID)
	if err != nil {
		return err
	}

	caption := fmt.Sprintf("%s %s\n\n%s",
		view.Product.Name, view.Product.PriceFormatted, view.Product.Description)
	markup := InlineButtonsRows(
		[]InlineBtn{{
			Text:   "Add to cart",
			Unique: cbEvent,
			Data:   engine.Payload{Kind: engine.KindAddToCart, ProductID: view.Product.ID}.Encode(),
		}},
		[]InlineBtn{{
			Text:   "Back to menu",
			Unique: cbEvent,
			Data:   engine.Payload{Kind: engine.KindBackToMenu}.Encode(),
		}},
	)

	b.dropLastMenu(userID)
	if view.ImageURL != "" {
		photo := &tele.Photo{File: tele.FromURL(view.ImageURL), Caption: caption}
		_, err = b.bot.Send(to, photo, markup)
		return err
	}
	_, err = b.bot.Send(to, caption, markup)
	return err
}

func (b *Bot) SendCart(_ context.Context, userID string, view engine.CartView) error {
	to, err := recipient(userID)
	if err != nil {
		return err
	}

	b.dropLastMenu(userID)
	if view.Text == "" {
		markup := InlineButtonsRows([]InlineBtn{{
			Text:   "To the menu",
			Unique: cbEvent,
			Data:   engine.Payload{Kind: engine.KindBackToMenu}.Encode(),
		}})
		_, err = b.bot.Send(to, "Your cart is empty.", markup)
		return err
	}

	var rows [][]InlineBtn
	for _, line := range view.Cart.ProductLines() {
		rows = append(rows, []InlineBtn{{
			Text:   "Remove " + line.Name,
			Unique: cbEvent,
			Data:   engine.Payload{Kind: engine.KindRemoveItem, CartItemID: line.ID}.Encode(),
		}})
	}
	rows = append(rows,
		[]InlineBtn{{
			Text:   "Checkout",
			Unique: cbEvent,
			Data:   engine.Payload{Kind: engine.KindCheckout}.Encode(),
		}},
		[]InlineBtn{{
			Text:   "To the menu",
			Unique: cbEvent,
			Data:   engine.Payload{Kind: engine.KindBackToMenu}.Encode(),
		}},
	)

	_, err = b.bot.Send(to, view.Text, InlineButtonsRows(rows...))
	return err
}

func (b *Bot) SendDeliveryOptions(_ context.Context, userID string, view engine.DeliveryView) error {
	to, err := recipient(userID)
	if err != nil {
		return err
	}

	var rows [][]InlineBtn
	if view.Deliverable {
		rows = append(rows, []InlineBtn{{
			Text:   "Delivery",
			Unique: cbEvent,
			Data: engine.Payload{
				Kind:       engine.KindDelivery,
				PriceMinor: view.PriceMinor,
				Lon:        view.Lon,
				Lat:        view.Lat,
			}.Encode(),
		}})
	}
	rows = append(rows,
		[]InlineBtn{{
			Text:   "Pickup",
			Unique: cbEvent,
			Data:   engine.Payload{Kind: engine.KindPickup, PizzeriaID: view.PizzeriaID}.Encode(),
		}},
		[]InlineBtn{{
			Text:   "Change address",
			Unique: cbEvent,
			Data:   engine.Payload{Kind: engine.KindChangeAddress}.Encode(),
		}},
	)

	_, err = b.bot.Send(to, view.Text, InlineButtonsRows(rows...))
	return err
}

func (b *Bot) SendInvoice(_ context.Context, userID string, view engine.InvoiceView) error {
	to, err := recipient(userID)
	if err != nil {
		return err
	}

	prices := make([]tele.Price, 0, len(view.Lines))
	for _, line := range view.Lines {
		prices = append(prices, tele.Price{Label: line.Label, Amount: int(line.AmountMinor)})
	}
	invoice := &tele.Invoice{
		Title:       view.Title,
		Description: view.Description,
		Payload:     view.Payload,
		Currency:    b.cfg.Telegram.Currency,
		Token:       b.cfg.Telegram.PaymentToken,
		Start:       b.cfg.Telegram.PaymentParameter,
		Prices:      prices,
	}
	_, err = b.bot.Send(to, invoice)
	return err
}

// AnswerPrecheck goes through Raw because the answer must reference the
// provider's query id, not a chat.
func (b *Bot) AnswerPrecheck(_ context.Context, precheckID string, ok bool, errorMessage string) error {
	params := map[string]string{
		"pre_checkout_query_id": precheckID,
		"ok":                    strconv.FormatBool(ok),
	}
	if !ok && errorMessage != "" {
		params["error_message"] = errorMessage
	}
	_, err := b.bot.Raw("answerPreCheckoutQuery", params)
	return err
}

func (b *Bot) NotifyCourier(_ context.Context, courierID int64, text string, lon, lat float64) error {
	to := tele.ChatID(courierID)
	if _, err := b.bot.Send(to, text); err != nil {
		return err
	}
	_, err := b.bot.Send(to, &tele.Location{Lat: float32(lat), Lng: float32(lon)})
	return err
}

// Ack answers the pending callback with a toast; outside a callback it
// falls back to a plain message.
func (b *Bot) Ack(ctx context.Context, userID, text string) error {
	if cb, ok := b.takeCallback(userID); ok {
		return b.bot.Respond(cb, &tele.CallbackResponse{Text: text})
	}
	return b.SendText(ctx, userID, text)
}

func (b *Bot) dropLastMenu(userID string) {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return
	}
	b.mu.Lock()
	delete(b.lastMenu, chatID)
	b.mu.Unlock()
}
