package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/grepto/pizza-bot/core/logger"
	"github.com/grepto/pizza-bot/internal/delivery"
	"github.com/grepto/pizza-bot/internal/geo"
	"github.com/grepto/pizza-bot/internal/moltin"
	"github.com/grepto/pizza-bot/internal/order"
	"github.com/grepto/pizza-bot/internal/state"
)

const component = "engine"

// invoicePayload tags every invoice this bot issues; prechecks carrying
// any other payload are declined.
const invoicePayload = "pizza-payment"

// menuPageSize is how many products one menu page shows.
const menuPageSize = 8

// resetCommand restarts the conversation from any state.
const resetCommand = "/start"

// Catalog is the product-facing slice of the commerce client.
type Catalog interface {
	Products(ctx context.Context) ([]moltin.Product, error)
	Product(ctx context.Context, productID string) (moltin.Product, error)
	Categories(ctx context.Context) ([]moltin.Category, error)
	ImageURL(ctx context.Context, fileID string) (string, error)
}

// CartService is the cart-facing slice of the commerce client.
type CartService interface {
	Cart(ctx context.Context, cartID string) (order.Cart, error)
	AddCartItem(ctx context.Context, cartID, productID string, quantity int) error
	AddCustomItem(ctx context.Context, cartID, name, sku string, priceMinor int64) error
	RemoveCartItem(ctx context.Context, cartID, itemID string) error
	DeleteCart(ctx context.Context, cartID string) error
}

// LocationService lists fulfillment sites and keeps the per-customer
// location history.
type LocationService interface {
	Pizzerias(ctx context.Context) ([]moltin.Pizzeria, error)
	SaveCustomerLocation(ctx context.Context, loc moltin.CustomerLocation) error
	LatestCustomerLocation(ctx context.Context, customerID string) (moltin.CustomerLocation, bool, error)
}

// Geocoder resolves free-text addresses to coordinates.
type Geocoder interface {
	Locate(ctx context.Context, address string) (geo.Point, bool, error)
}

// Config carries the engine's owned dependencies. All collaborators are
// constructed by the caller and passed in explicitly.
type Config struct {
	Namespace     string
	Store         state.Store
	Catalog       Catalog
	Carts         CartService
	Locations     LocationService
	Geocoder      Geocoder
	Renderer      Renderer
	Scheduler     Scheduler
	Tiers         []delivery.Tier
	FollowUpDelay time.Duration
	// DefaultCategoryID filters the menu when no category was chosen.
	// Empty shows the whole catalog.
	DefaultCategoryID string
}

// Engine is the per-user conversation state machine. One instance serves
// one transport namespace; instances share nothing in-process, all
// durable state lives in the store.
type Engine struct {
	namespace       string
	store           state.Store
	catalog         Catalog
	carts           CartService
	locations       LocationService
	geocoder        Geocoder
	renderer        Renderer
	scheduler       Scheduler
	tiers           []delivery.Tier
	followUpDelay   time.Duration
	defaultCategory string
}

// New builds an Engine from explicit dependencies.
func New(cfg Config) *Engine {
	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = TimerScheduler{}
	}
	return &Engine{
		namespace:       cfg.Namespace,
		store:           cfg.Store,
		catalog:         cfg.Catalog,
		carts:           cfg.Carts,
		locations:       cfg.Locations,
		geocoder:        cfg.Geocoder,
		renderer:        cfg.Renderer,
		scheduler:       scheduler,
		tiers:           cfg.Tiers,
		followUpDelay:   cfg.FollowUpDelay,
		defaultCategory: cfg.DefaultCategoryID,
	}
}

// cartID derives the commerce cart identity for a user. It matches the
// state-store key, so one user has exactly one cart per transport.
func (e *Engine) cartID(userID string) string {
	return state.Key(e.namespace, userID)
}

// HandleEvent runs one dispatch: load state, invoke the handler for it,
// persist the returned state. The state write happens only after every
// side effect succeeded, so a failed dispatch leaves the conversation
// parked at the prior step and the next inbound event retries it.
func (e *Engine) HandleEvent(ctx context.Context, userID string, ev Event) error {
	// Prechecks are time-critical and state-independent: the provider
	// waits for the answer, so they bypass the state table entirely.
	if pre, ok := ev.(PaymentPrecheck); ok {
		return e.handlePrecheck(ctx, pre)
	}

	key := state.Key(e.namespace, userID)
	current, found, err := e.store.Get(ctx, key)
	if err != nil {
		return remoteErr("load state", err)
	}
	if !found || !current.IsValid() {
		current = state.Start
	}
	if text, ok := ev.(TextMessage); ok && text.Body == resetCommand {
		current = state.Start
	}

	ctx = logger.WithUserKey(ctx, key)
	ctx = logger.WithHandler(ctx, string(current))
	start := time.Now()

	var next state.State
	switch current {
	case state.Start, state.Finish:
		next, err = e.handleStart(ctx, userID)
	case state.Menu:
		next, err = e.handleMenu(ctx, userID, ev)
	case state.ProductDetail:
		next, err = e.handleProductDetail(ctx, userID, ev)
	case state.Cart:
		next, err = e.handleCart(ctx, userID, ev)
	case state.LocationRequest:
		next, err = e.handleLocationRequest(ctx, userID, ev)
	case state.DeliveryOptions:
		next, err = e.handleDeliveryOptions(ctx, userID, ev)
	case state.WaitingPayment:
		next, err = e.handleWaitingPayment(ctx, userID, ev)
	default:
		next, err = e.handleStart(ctx, userID)
	}
	if err != nil {
		logger.Error(ctx, component, "dispatch_failed",
			slog.String("user", logger.UserKeyFrom(ctx)),
			slog.String("handler", logger.HandlerFrom(ctx)),
			slog.String("status", logger.Status(err)),
			slog.String("kind", string(KindOf(err))),
			slog.Duration("took", logger.Took(start)),
			slog.Any("error", err))
		return err
	}

	if err := e.store.Set(ctx, key, next); err != nil {
		return remoteErr("persist state", err)
	}
	logger.Debug(ctx, component, "state_change",
		slog.String("user", logger.UserKeyFrom(ctx)),
		slog.String("from", string(current)),
		slog.String("to", string(next)),
		slog.String("status", logger.Status(nil)),
		slog.Duration("took", logger.Took(start)))
	return nil
}

// handlePrecheck validates the order payload before the provider captures
// funds. A mismatch declines the precheck; the conversation state is not
// touched either way.
func (e *Engine) handlePrecheck(ctx context.Context, pre PaymentPrecheck) error {
	if pre.InvoicePayload != invoicePayload {
		if err := e.renderer.AnswerPrecheck(ctx, pre.ID, false, "Something went wrong with your order, please start over."); err != nil {
			return remoteErr("answer precheck", err)
		}
		return &EngineError{Kind: PaymentPayloadMismatch, Op: "precheck"}
	}
	if err := e.renderer.AnswerPrecheck(ctx, pre.ID, true, ""); err != nil {
		return remoteErr("answer precheck", err)
	}
	return nil
}
