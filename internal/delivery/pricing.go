// Package delivery quotes a delivery price from a distance-tier table.
package delivery

import coreconfig "github.com/grepto/pizza-bot/core/config"

// Tier maps an upper distance bound (inclusive) to a delivery price in
// minor units. Tables are sorted ascending by distance; config
// validation enforces the ordering.
type Tier struct {
	MaxDistanceKm float64
	PriceMinor    int64
}

// TiersFromConfig converts configured tiers into the policy table.
func TiersFromConfig(tiers []coreconfig.DeliveryTier) []Tier {
	out := make([]Tier, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, Tier{MaxDistanceKm: t.MaxDistanceKm, PriceMinor: t.PriceMinor})
	}
	return out
}

// PriceFor returns the delivery price for a distance: the first tier
// whose bound is >= distanceKm wins (the bound itself belongs to the
// tier). deliverable is false when the distance exceeds every bound,
// meaning only pickup is offered.
func PriceFor(distanceKm float64, tiers []Tier) (priceMinor int64, deliverable bool) {
	for _, tier := range tiers {
		if distanceKm <= tier.MaxDistanceKm {
			return tier.PriceMinor, true
		}
	}
	return 0, false
}

// Quote is the delivery offer for a resolved customer location.
// A nil PriceMinor means the location is out of range and only pickup
// is available.
type Quote struct {
	PizzeriaID string
	DistanceKm float64
	PriceMinor *int64
}

// Deliverable reports whether the quote carries a price.
func (q Quote) Deliverable() bool {
	return q.PriceMinor != nil
}

// QuoteFor prices a resolved customer location against the tier table.
func QuoteFor(pizzeriaID string, distanceKm float64, tiers []Tier) Quote {
	q := Quote{PizzeriaID: pizzeriaID, DistanceKm: distanceKm}
	if price, ok := PriceFor(distanceKm, tiers); ok {
		q.PriceMinor = &price
	}
	return q
}
