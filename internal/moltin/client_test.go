package moltin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grepto/pizza-bot/internal/order"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client, *int32) {
	t.Helper()
	var tokenRequests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/access_token" {
			atomic.AddInt32(&tokenRequests, 1)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			assert.Equal(t, "test-id", r.PostForm.Get("client_id"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok-123",
				"token_type":   "Bearer",
				"expires":      time.Now().Add(time.Hour).Unix(),
			})
			return
		}
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL, "test-id", "test-secret", srv.Client()), &tokenRequests
}

func TestClientTokenCached(t *testing.T) {
	_, client, tokenRequests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": []}`))
	})

	ctx := context.Background()
	_, err := client.Products(ctx)
	require.NoError(t, err)
	_, err = client.Products(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(tokenRequests))
}

func TestClientProductDecode(t *testing.T) {
	_, client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/products/p1", r.URL.Path)
		_, _ = w.Write([]byte(`{"data": {
			"id": "p1",
			"name": "Pepperoni",
			"description": "Spicy",
			"sku": "pepperoni",
			"meta": {"display_price": {"with_tax": {"amount": 50000, "formatted": "500 RUB"}}},
			"relationships": {
				"main_image": {"data": {"id": "img-1"}},
				"categories": {"data": [{"id": "c1"}, {"id": "c2"}]}
			}
		}}`))
	})

	p, err := client.Product(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Pepperoni", p.Name)
	assert.Equal(t, int64(50000), p.PriceMinor)
	assert.Equal(t, "500 RUB", p.PriceFormatted)
	assert.Equal(t, "img-1", p.ImageID)
	assert.Equal(t, []string{"c1", "c2"}, p.CategoryIDs)
}

func TestClientCartDecode(t *testing.T) {
	_, client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/carts/cart-1/items", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"data": [{
				"id": "line-1",
				"product_id": "p1",
				"sku": "pepperoni",
				"name": "Pepperoni",
				"description": "Spicy",
				"quantity": 2,
				"unit_price": {"amount": 50000},
				"meta": {"display_price": {"with_tax": {
					"unit": {"amount": 50000, "formatted": "500 RUB"},
					"value": {"amount": 100000, "formatted": "1000 RUB"}
				}}},
				"image": {"href": "https://img.example/p1.jpg"}
			}],
			"meta": {"display_price": {"with_tax": {"amount": 100000, "formatted": "1000 RUB"}}}
		}`))
	})

	cart, err := client.Cart(context.Background(), "cart-1")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, order.CartLine{
		ID:                 "line-1",
		ProductID:          "p1",
		SKU:                "pepperoni",
		Name:               "Pepperoni",
		Description:        "Spicy",
		Quantity:           2,
		UnitPriceMinor:     50000,
		UnitPriceFormatted: "500 RUB",
		TotalFormatted:     "1000 RUB",
		ImageURL:           "https://img.example/p1.jpg",
	}, cart.Lines[0])
	assert.Equal(t, int64(100000), cart.TotalMinor)
	assert.Equal(t, "1000 RUB", cart.TotalFormatted)
}

func TestClientErrorStatus(t *testing.T) {
	_, client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"errors": [{"title": "upstream down"}]}`))
	})

	_, err := client.Products(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestLatestCustomerLocation(t *testing.T) {
	_, client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/flows/customer-location/entries", r.URL.Path)
		_, _ = w.Write([]byte(`{"data": [
			{"id": "old", "customer-id": "42", "longitude": 37.1, "latitude": 55.1,
			 "meta": {"timestamps": {"created_at": "2026-01-01T10:00:00Z"}}},
			{"id": "new", "customer-id": "42", "longitude": 37.2, "latitude": 55.2,
			 "meta": {"timestamps": {"created_at": "2026-02-01T10:00:00Z"}}},
			{"id": "other", "customer-id": "99", "longitude": 30.0, "latitude": 59.9,
			 "meta": {"timestamps": {"created_at": "2026-03-01T10:00:00Z"}}}
		]}`))
	})

	loc, found, err := client.LatestCustomerLocation(context.Background(), "42")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "new", loc.ID)
	assert.InDelta(t, 37.2, loc.Lon, 1e-9)

	_, found, err = client.LatestCustomerLocation(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}
