package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocoderLocate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "123 Main St", r.URL.Query().Get("geocode"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		_, _ = w.Write([]byte(`{
			"response": {"GeoObjectCollection": {"featureMember": [
				{"GeoObject": {"Point": {"pos": "37.617635 55.755814"}}}
			]}}
		}`))
	}))
	defer srv.Close()

	g := NewGeocoder(srv.URL, "test-key", srv.Client())
	point, found, err := g.Locate(context.Background(), "123 Main St")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 37.617635, point.Lon, 1e-9)
	assert.InDelta(t, 55.755814, point.Lat, 1e-9)
}

func TestGeocoderLocateNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": {"GeoObjectCollection": {"featureMember": []}}}`))
	}))
	defer srv.Close()

	g := NewGeocoder(srv.URL, "", srv.Client())
	_, found, err := g.Locate(context.Background(), "gibberish")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGeocoderLocateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGeocoder(srv.URL, "", srv.Client())
	_, _, err := g.Locate(context.Background(), "123 Main St")
	assert.Error(t, err)
}
