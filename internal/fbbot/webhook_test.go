package fbbot

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/grepto/pizza-bot/core/config"
	"github.com/grepto/pizza-bot/internal/engine"
	"github.com/grepto/pizza-bot/internal/geo"
	"github.com/grepto/pizza-bot/internal/moltin"
	"github.com/grepto/pizza-bot/internal/order"
	"github.com/grepto/pizza-bot/internal/state"
)

type stubCatalog struct{}

func (stubCatalog) Products(context.Context) ([]moltin.Product, error) {
	return []moltin.Product{{ID: "P1", Name: "Pepperoni"}}, nil
}
func (stubCatalog) Product(_ context.Context, id string) (moltin.Product, error) {
	return moltin.Product{ID: id}, nil
}
func (stubCatalog) Categories(context.Context) ([]moltin.Category, error) { return nil, nil }
func (stubCatalog) ImageURL(context.Context, string) (string, error)      { return "", nil }

type stubCarts struct{}

func (stubCarts) Cart(context.Context, string) (order.Cart, error)       { return order.Cart{}, nil }
func (stubCarts) AddCartItem(context.Context, string, string, int) error { return nil }
func (stubCarts) AddCustomItem(context.Context, string, string, string, int64) error {
	return nil
}
func (stubCarts) RemoveCartItem(context.Context, string, string) error { return nil }
func (stubCarts) DeleteCart(context.Context, string) error             { return nil }

type stubLocations struct{}

func (stubLocations) Pizzerias(context.Context) ([]moltin.Pizzeria, error) { return nil, nil }
func (stubLocations) SaveCustomerLocation(context.Context, moltin.CustomerLocation) error {
	return nil
}
func (stubLocations) LatestCustomerLocation(context.Context, string) (moltin.CustomerLocation, bool, error) {
	return moltin.CustomerLocation{}, false, nil
}

// recordingRenderer captures the views the engine produced for a dispatch.
type recordingRenderer struct {
	menus int
	texts []string
}

func (r *recordingRenderer) SendText(_ context.Context, _, text string) error {
	r.texts = append(r.texts, text)
	return nil
}
func (r *recordingRenderer) SendMenu(context.Context, string, engine.MenuView) error {
	r.menus++
	return nil
}
func (r *recordingRenderer) SendProductDetail(context.Context, string, engine.ProductView) error {
	return nil
}
func (r *recordingRenderer) SendCart(context.Context, string, engine.CartView) error { return nil }
func (r *recordingRenderer) SendDeliveryOptions(context.Context, string, engine.DeliveryView) error {
	return nil
}
func (r *recordingRenderer) SendInvoice(context.Context, string, engine.InvoiceView) error {
	return nil
}
func (r *recordingRenderer) AnswerPrecheck(context.Context, string, bool, string) error { return nil }
func (r *recordingRenderer) NotifyCourier(context.Context, int64, string, float64, float64) error {
	return nil
}
func (r *recordingRenderer) Ack(context.Context, string, string) error { return nil }

type noopGeocoder struct{}

func (noopGeocoder) Locate(context.Context, string) (geo.Point, bool, error) {
	return geo.Point{}, false, nil
}

func newTestWebhook(t *testing.T) (*Webhook, *recordingRenderer, *state.MemoryStore) {
	t.Helper()
	store := state.NewMemoryStore()
	renderer := &recordingRenderer{}
	e := engine.New(engine.Config{
		Namespace:     Namespace,
		Store:         store,
		Catalog:       stubCatalog{},
		Carts:         stubCarts{},
		Locations:     stubLocations{},
		Geocoder:      noopGeocoder{},
		Renderer:      renderer,
		FollowUpDelay: time.Minute,
	})
	cfg := &coreconfig.Config{}
	cfg.Facebook.VerifyToken = "verify-me"
	return NewWebhook(cfg, e), renderer, store
}

func TestWebhookVerifyHandshake(t *testing.T) {
	wh, _, _ := newTestWebhook(t)
	srv := httptest.NewServer(wh.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "12345", string(body))
}

func TestWebhookVerifyRejectsBadToken(t *testing.T) {
	wh, _, _ := newTestWebhook(t)
	srv := httptest.NewServer(wh.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebhookDispatchesMessage(t *testing.T) {
	wh, renderer, store := newTestWebhook(t)
	srv := httptest.NewServer(wh.Router())
	defer srv.Close()

	body := `{"object": "page", "entry": [{"messaging": [
		{"sender": {"id": "fb-user-1"}, "message": {"text": "hi"}}
	]}]}`
	resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 1, renderer.menus)
	st, found, err := store.Get(context.Background(), state.Key(Namespace, "fb-user-1"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, state.Menu, st)
}

func TestWebhookIgnoresNonPageObjects(t *testing.T) {
	wh, renderer, _ := newTestWebhook(t)
	srv := httptest.NewServer(wh.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/webhook", "application/json",
		strings.NewReader(`{"object": "user", "entry": []}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, renderer.menus)
}

func TestDecodeMessaging(t *testing.T) {
	ev, ok := decodeMessaging(fbMessaging{Postback: &fbPostback{Payload: "start"}})
	require.True(t, ok)
	assert.Equal(t, engine.TextMessage{Body: "/start"}, ev)

	ev, ok = decodeMessaging(fbMessaging{Postback: &fbPostback{
		Payload: engine.Payload{Kind: engine.KindOpenCart}.Encode(),
	}})
	require.True(t, ok)
	assert.Equal(t, engine.Postback{Payload: engine.Payload{Kind: engine.KindOpenCart}}, ev)

	_, ok = decodeMessaging(fbMessaging{Postback: &fbPostback{Payload: "???"}})
	assert.False(t, ok)

	loc := fbMessaging{Message: &fbMessage{Attachments: []fbAttachment{{Type: "location"}}}}
	loc.Message.Attachments[0].Payload.Coordinates.Lat = 55.75
	loc.Message.Attachments[0].Payload.Coordinates.Long = 37.61
	ev, ok = decodeMessaging(loc)
	require.True(t, ok)
	assert.Equal(t, engine.LocationShared{Lon: 37.61, Lat: 55.75}, ev)
}
