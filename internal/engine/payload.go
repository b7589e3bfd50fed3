package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the intent a button payload carries across requests.
type Kind string

const (
	KindPage          Kind = "page"
	KindOpenCart      Kind = "open_cart"
	KindBackToMenu    Kind = "back_to_menu"
	KindAddToCart     Kind = "add_to_cart"
	KindRemoveItem    Kind = "remove_item"
	KindCategory      Kind = "category"
	KindCheckout      Kind = "checkout"
	KindDelivery      Kind = "delivery"
	KindPickup        Kind = "pickup"
	KindChangeAddress Kind = "change_address"
	KindPay           Kind = "pay"
)

// Payload is the structured cross-request intent behind a button. The
// engine works with this type only; the string form exists solely at the
// transport boundary, where Telegram caps callback data at 64 bytes, so
// the encoding stays terse.
type Payload struct {
	Kind       Kind
	ProductID  string
	CartItemID string
	CategoryID string
	Page       int
	PriceMinor int64
	Lon        float64
	Lat        float64
	PizzeriaID string
}

const (
	payloadSep   = "~"
	payloadKVSep = "="
)

var knownKinds = map[Kind]bool{
	KindPage:          true,
	KindOpenCart:      true,
	KindBackToMenu:    true,
	KindAddToCart:     true,
	KindRemoveItem:    true,
	KindCategory:      true,
	KindCheckout:      true,
	KindDelivery:      true,
	KindPickup:        true,
	KindChangeAddress: true,
	KindPay:           true,
}

// Encode serializes the payload as "kind~key=value~..." with only the
// populated fields present.
func (p Payload) Encode() string {
	var b strings.Builder
	b.WriteString(string(p.Kind))
	writeField := func(key, value string) {
		b.WriteString(payloadSep)
		b.WriteString(key)
		b.WriteString(payloadKVSep)
		b.WriteString(value)
	}
	if p.ProductID != "" {
		writeField("pid", p.ProductID)
	}
	if p.CartItemID != "" {
		writeField("cid", p.CartItemID)
	}
	if p.CategoryID != "" {
		writeField("cat", p.CategoryID)
	}
	if p.Page != 0 {
		writeField("pg", strconv.Itoa(p.Page))
	}
	if p.PriceMinor != 0 {
		writeField("p", strconv.FormatInt(p.PriceMinor, 10))
	}
	if p.Lon != 0 {
		writeField("lon", strconv.FormatFloat(p.Lon, 'f', 6, 64))
	}
	if p.Lat != 0 {
		writeField("lat", strconv.FormatFloat(p.Lat, 'f', 6, 64))
	}
	if p.PizzeriaID != "" {
		writeField("pz", p.PizzeriaID)
	}
	return b.String()
}

// DecodePayload parses the wire form produced by Encode.
func DecodePayload(s string) (Payload, error) {
	parts := strings.Split(s, payloadSep)
	kind := Kind(parts[0])
	if !knownKinds[kind] {
		return Payload{}, fmt.Errorf("payload: unknown kind %q in %q", parts[0], s)
	}
	p := Payload{Kind: kind}
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(part, payloadKVSep)
		if !ok {
			return Payload{}, fmt.Errorf("payload: malformed field %q in %q", part, s)
		}
		var err error
		switch key {
		case "pid":
			p.ProductID = value
		case "cid":
			p.CartItemID = value
		case "cat":
			p.CategoryID = value
		case "pg":
			p.Page, err = strconv.Atoi(value)
		case "p":
			p.PriceMinor, err = strconv.ParseInt(value, 10, 64)
		case "lon":
			p.Lon, err = strconv.ParseFloat(value, 64)
		case "lat":
			p.Lat, err = strconv.ParseFloat(value, 64)
		case "pz":
			p.PizzeriaID = value
		default:
			return Payload{}, fmt.Errorf("payload: unknown field %q in %q", key, s)
		}
		if err != nil {
			return Payload{}, fmt.Errorf("payload: field %q in %q: %w", key, s, err)
		}
	}
	return p, nil
}
