// Package state persists the single conversation-state label each user
// carries between chat messages.
package state

import "context"

// State identifies the step of the ordering conversation a user is at.
type State string

const (
	// Start is the implicit state of a user with no stored label.
	Start State = "START"
	// Menu means the user is browsing the product menu.
	Menu State = "MENU"
	// ProductDetail means a single product card is on screen.
	ProductDetail State = "PRODUCT_DETAIL"
	// Cart means the cart contents are on screen.
	Cart State = "CART"
	// LocationRequest means the bot is waiting for an address or a live location.
	LocationRequest State = "LOCATION_REQUEST"
	// DeliveryOptions means delivery/pickup choices are on screen.
	DeliveryOptions State = "DELIVERY_OPTIONS"
	// WaitingPayment means an order is assembled and awaits payment.
	WaitingPayment State = "WAITING_PAYMENT"
	// Finish means the order completed; any input restarts browsing.
	Finish State = "FINISH"
)

// IsValid reports whether s is a known conversation state. Unknown or
// corrupted stored labels are treated as Start by the engine.
func (s State) IsValid() bool {
	switch s {
	case Start, Menu, ProductDetail, Cart, LocationRequest, DeliveryOptions, WaitingPayment, Finish:
		return true
	}
	return false
}

// Key builds the transport-namespaced store key for a user, so the same
// human on two platforms gets independent conversations.
func Key(namespace, userID string) string {
	return namespace + ":" + userID
}

// Store maps a user key to its single latest conversation state.
// No history, no transactions; last writer wins.
type Store interface {
	Get(ctx context.Context, key string) (State, bool, error)
	Set(ctx context.Context, key string, st State) error
}

// CachedProduct is a catalog snapshot entry kept in the menu cache so
// card galleries can render without hitting the catalog per item.
type CachedProduct struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	PriceMinor     int64    `json:"price_minor"`
	PriceFormatted string   `json:"price_formatted"`
	ImageURL       string   `json:"image_url"`
	CategoryIDs    []string `json:"category_ids,omitempty"`
}

// MenuCache stores the latest catalog snapshot.
type MenuCache interface {
	SetMenu(ctx context.Context, menu []CachedProduct) error
	Menu(ctx context.Context) ([]CachedProduct, bool, error)
}
