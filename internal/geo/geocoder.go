package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Geocoder resolves free-text addresses to coordinates through the
// Yandex geocoding HTTP API.
type Geocoder struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewGeocoder constructs a Geocoder around the provided HTTP client.
func NewGeocoder(endpoint, apiKey string, client *http.Client) *Geocoder {
	if client == nil {
		client = http.DefaultClient
	}
	return &Geocoder{endpoint: strings.TrimRight(endpoint, "/"), apiKey: apiKey, http: client}
}

type geocodeResponse struct {
	Response struct {
		GeoObjectCollection struct {
			FeatureMember []struct {
				GeoObject struct {
					Point struct {
						Pos string `json:"pos"`
					} `json:"Point"`
				} `json:"GeoObject"`
			} `json:"featureMember"`
		} `json:"GeoObjectCollection"`
	} `json:"response"`
}

// Locate resolves address to a coordinate. found is false when the
// provider knows no match for the address.
func (g *Geocoder) Locate(ctx context.Context, address string) (Point, bool, error) {
	params := url.Values{}
	params.Set("geocode", address)
	params.Set("format", "json")
	if g.apiKey != "" {
		params.Set("apikey", g.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"/?"+params.Encode(), nil)
	if err != nil {
		return Point{}, false, fmt.Errorf("geo: build request: %w", err)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return Point{}, false, fmt.Errorf("geo: geocode %q: %w", address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Point{}, false, fmt.Errorf("geo: geocode %q: unexpected status %s", address, resp.Status)
	}

	var payload geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Point{}, false, fmt.Errorf("geo: decode geocode response: %w", err)
	}

	members := payload.Response.GeoObjectCollection.FeatureMember
	if len(members) == 0 {
		return Point{}, false, nil
	}

	// pos is "lon lat" separated by a space.
	parts := strings.Fields(members[0].GeoObject.Point.Pos)
	if len(parts) != 2 {
		return Point{}, false, fmt.Errorf("geo: malformed pos %q", members[0].GeoObject.Point.Pos)
	}
	lon, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Point{}, false, fmt.Errorf("geo: parse lon: %w", err)
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Point{}, false, fmt.Errorf("geo: parse lat: %w", err)
	}
	return Point{Lon: lon, Lat: lat}, true, nil
}
