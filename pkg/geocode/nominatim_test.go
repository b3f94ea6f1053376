package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/phone-finder/internal/resilience"
)

func TestNominatim_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Shibuya, Tokyo", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "test-agent/0.1", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[{"lat": "35.6619707", "lon": "139.703795", "display_name": "Shibuya, Tokyo, Japan", "class": "boundary", "type": "administrative"}]`))
	}))
	defer srv.Close()

	p := NewNominatimProvider(
		WithNominatimURL(srv.URL+"/"),
		WithUserAgent("test-agent/0.1"),
		WithNominatimLimiter(newTestLimiter()),
	)
	res, err := p.Geocode(context.Background(), "Shibuya, Tokyo")

	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.InDelta(t, 35.6619707, res.Latitude, 1e-9)
	assert.InDelta(t, 139.703795, res.Longitude, 1e-9)
	assert.Equal(t, "Shibuya, Tokyo, Japan", res.Address)
	assert.Equal(t, "nominatim", res.Source)
	assert.Equal(t, "centroid", res.Quality)
}

func TestNominatim_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	p := NewNominatimProvider(WithNominatimURL(srv.URL), WithNominatimLimiter(newTestLimiter()))
	res, err := p.Geocode(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestNominatim_EmptyQuery(t *testing.T) {
	p := NewNominatimProvider(WithNominatimLimiter(newTestLimiter()))
	res, err := p.Geocode(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestNominatim_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewNominatimProvider(WithNominatimURL(srv.URL), WithNominatimLimiter(newTestLimiter()))
	_, err := p.Geocode(context.Background(), "Tokyo")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestNominatim_BadCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"lat": "north", "lon": "139.7"}]`))
	}))
	defer srv.Close()

	p := NewNominatimProvider(WithNominatimURL(srv.URL), WithNominatimLimiter(newTestLimiter()))
	_, err := p.Geocode(context.Background(), "Tokyo")
	assert.Error(t, err)
}

func TestNominatimQuality(t *testing.T) {
	assert.Equal(t, "rooftop", nominatimQuality("building", "yes"))
	assert.Equal(t, "rooftop", nominatimQuality("place", "house"))
	assert.Equal(t, "range", nominatimQuality("highway", "residential"))
	assert.Equal(t, "centroid", nominatimQuality("place", "city"))
	assert.Equal(t, "approximate", nominatimQuality("amenity", "cafe"))
}
