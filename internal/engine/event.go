// Package engine drives the per-user ordering conversation: it loads the
// stored state for the user, dispatches the inbound event to the handler
// for that state, runs the side effects against the commerce, location and
// rendering collaborators, and persists the next state.
package engine

// Event is an inbound chat event decoded by a transport adapter. Exactly
// one concrete type arrives per dispatch.
type Event interface {
	isEvent()
}

// TextMessage is a plain text message from the user.
type TextMessage struct {
	Body string
}

// LocationShared is a GPS location the user shared.
type LocationShared struct {
	Lon float64
	Lat float64
}

// MenuSelection is the user tapping a product in the menu.
type MenuSelection struct {
	ProductID string
}

// Postback is a button press carrying a structured payload.
type Postback struct {
	Payload Payload
}

// PaymentPrecheck is the payment provider asking whether the order is
// still valid before capturing funds.
type PaymentPrecheck struct {
	ID             string
	InvoicePayload string
}

// PaymentCompleted reports a successfully captured payment.
type PaymentCompleted struct{}

func (TextMessage) isEvent()      {}
func (LocationShared) isEvent()   {}
func (MenuSelection) isEvent()    {}
func (Postback) isEvent()         {}
func (PaymentPrecheck) isEvent()  {}
func (PaymentCompleted) isEvent() {}
