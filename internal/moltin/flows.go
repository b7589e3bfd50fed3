package moltin

import (
	"context"
	"net/http"
	"time"
)

// Flow slugs the bot relies on. Entries carry the custom fields defined on
// each flow, keyed by the slugified field names.
const (
	pizzeriaFlowSlug         = "pizzeria"
	customerLocationFlowSlug = "customer-location"
)

// Pizzeria is a restaurant branch stored in the pizzeria flow.
type Pizzeria struct {
	ID        string  `json:"id"`
	Address   string  `json:"address"`
	Alias     string  `json:"alias"`
	Lon       float64 `json:"longitude"`
	Lat       float64 `json:"latitude"`
	CourierID int64   `json:"courier-id"`
}

// CustomerLocation is a delivery destination a customer confirmed, stored
// in the customer location flow.
type CustomerLocation struct {
	ID                 string  `json:"id"`
	CustomerID         string  `json:"customer-id"`
	Lon                float64 `json:"longitude"`
	Lat                float64 `json:"latitude"`
	DeliveryPriceMinor int64   `json:"delivery-price"`
	Meta               struct {
		Timestamps struct {
			CreatedAt time.Time `json:"created_at"`
		} `json:"timestamps"`
	} `json:"meta"`
}

// CreatedAt reports when the location entry was stored.
func (l CustomerLocation) CreatedAt() time.Time {
	return l.Meta.Timestamps.CreatedAt
}

// Pizzerias lists all restaurant branches.
func (c *Client) Pizzerias(ctx context.Context) ([]Pizzeria, error) {
	var resp envelope[[]Pizzeria]
	if err := c.do(ctx, http.MethodGet, "/flows/"+pizzeriaFlowSlug+"/entries", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// SavePizzeria stores a restaurant branch entry. Used by the seed tool.
func (c *Client) SavePizzeria(ctx context.Context, p Pizzeria) error {
	body := map[string]any{
		"data": map[string]any{
			"type":       "entry",
			"address":    p.Address,
			"alias":      p.Alias,
			"longitude":  p.Lon,
			"latitude":   p.Lat,
			"courier-id": p.CourierID,
		},
	}
	return c.do(ctx, http.MethodPost, "/flows/"+pizzeriaFlowSlug+"/entries", nil, body, nil)
}

// SaveCustomerLocation stores a confirmed delivery destination.
func (c *Client) SaveCustomerLocation(ctx context.Context, loc CustomerLocation) error {
	body := map[string]any{
		"data": map[string]any{
			"type":           "entry",
			"customer-id":    loc.CustomerID,
			"longitude":      loc.Lon,
			"latitude":       loc.Lat,
			"delivery-price": loc.DeliveryPriceMinor,
		},
	}
	return c.do(ctx, http.MethodPost, "/flows/"+customerLocationFlowSlug+"/entries", nil, body, nil)
}

// LatestCustomerLocation returns the most recently stored destination for
// the customer, or false when none exists.
func (c *Client) LatestCustomerLocation(ctx context.Context, customerID string) (CustomerLocation, bool, error) {
	var resp envelope[[]CustomerLocation]
	if err := c.do(ctx, http.MethodGet, "/flows/"+customerLocationFlowSlug+"/entries", nil, nil, &resp); err != nil {
		return CustomerLocation{}, false, err
	}

	var latest CustomerLocation
	found := false
	for _, entry := range resp.Data {
		if entry.CustomerID != customerID {
			continue
		}
		if !found || entry.CreatedAt().After(latest.CreatedAt()) {
			latest = entry
			found = true
		}
	}
	return latest, found, nil
}
