package engine

import (
	"context"
	"time"

	"github.com/grepto/pizza-bot/internal/moltin"
	"github.com/grepto/pizza-bot/internal/order"
)

// MenuView is one page of the product menu.
type MenuView struct {
	Products   []moltin.Product
	Categories []moltin.Category
	CategoryID string
	Page       int
	HasPrev    bool
	HasNext    bool
}

// ProductView is a single product card.
type ProductView struct {
	Product  moltin.Product
	ImageURL string
}

// CartView is the priced cart with its composed text.
type CartView struct {
	Cart order.Cart
	Text string
}

// DeliveryView is the delivery offer for a resolved location.
type DeliveryView struct {
	Text        string
	Deliverable bool
	PriceMinor  int64
	Lon         float64
	Lat         float64
	PizzeriaID  string
}

// InvoiceView is the itemized payment request.
type InvoiceView struct {
	Title       string
	Description string
	Payload     string
	Lines       []order.InvoiceLine
}

// Renderer turns engine output into platform calls. Each transport
// provides its own implementation.
type Renderer interface {
	SendText(ctx context.Context, userID, text string) error
	SendMenu(ctx context.Context, userID string, view MenuView) error
	SendProductDetail(ctx context.Context, userID string, view ProductView) error
	SendCart(ctx context.Context, userID string, view CartView) error
	SendDeliveryOptions(ctx context.Context, userID string, view DeliveryView) error
	SendInvoice(ctx context.Context, userID string, view InvoiceView) error
	AnswerPrecheck(ctx context.Context, precheckID string, ok bool, errorMessage string) error
	NotifyCourier(ctx context.Context, courierID int64, text string, lon, lat float64) error
	Ack(ctx context.Context, userID, text string) error
}

// Scheduler defers a function by a fixed delay, independent of the
// triggering request's lifetime. Pending work is lost on restart.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// TimerScheduler schedules via the runtime timer heap.
type TimerScheduler struct{}

func (TimerScheduler) After(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}
