package geocoding

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := NewCache(":memory:", time.Hour, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

var santaMonica = Address{
	Street:     "123 Ocean Ave",
	City:       "Santa Monica",
	State:      "CA",
	Country:    "United States",
	PostalCode: "90401",
}

func TestGeocode_Match(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "123 Ocean Ave", q.Get("street"))
		assert.Equal(t, "Santa Monica", q.Get("city"))
		assert.Equal(t, "CA", q.Get("state"))
		assert.Equal(t, "United States", q.Get("country"))
		assert.Equal(t, "90401", q.Get("postalcode"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, "rentiful-test", r.Header.Get("User-Agent"))
		w.Write([]byte(`[{"lat":"34.0100","lon":"-118.4960"}]`))
	}))
	defer server.Close()

	g := NewGeocoder(testLogger(), newTestCache(t), Options{BaseURL: server.URL, UserAgent: "rentiful-test"})

	p, found, err := g.Geocode(context.Background(), santaMonica)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, orb.Point{-118.496, 34.01}, p)

	// second lookup is served from cache
	p, found, err = g.Geocode(context.Background(), santaMonica)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, orb.Point{-118.496, 34.01}, p)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGeocode_NoMatch(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	g := NewGeocoder(testLogger(), newTestCache(t), Options{BaseURL: server.URL})

	p, found, err := g.Geocode(context.Background(), santaMonica)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, orb.Point{}, p)

	// misses are not cached
	_, _, err = g.Geocode(context.Background(), santaMonica)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGeocode_UpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	g := NewGeocoder(testLogger(), nil, Options{BaseURL: server.URL})

	_, found, err := g.Geocode(context.Background(), santaMonica)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestGeocode_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a list"`))
	}))
	defer server.Close()

	g := NewGeocoder(testLogger(), nil, Options{BaseURL: server.URL})

	_, _, err := g.Geocode(context.Background(), santaMonica)
	assert.Error(t, err)
}

func TestGeocode_MinIntervalHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	g := NewGeocoder(testLogger(), nil, Options{BaseURL: server.URL, MinInterval: time.Hour})

	_, _, err := g.Geocode(context.Background(), santaMonica)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = g.Geocode(ctx, santaMonica)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCache_PersistentLayer(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, santaMonica.Key())
	assert.False(t, ok)

	c.Set(ctx, santaMonica.Key(), orb.Point{-118.5, 34.0})

	// drop the memory layer to force a sqlite read
	require.NoError(t, c.memory.Clear(ctx))

	p, ok := c.Get(ctx, santaMonica.Key())
	require.True(t, ok)
	assert.Equal(t, orb.Point{-118.5, 34.0}, p)
}

func TestAddressKey(t *testing.T) {
	a := Address{Street: " 1 Main St ", City: "LA", Country: "USA"}
	b := Address{Street: "1 main st", City: "la", Country: "usa"}

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "1 Main St, LA, USA", a.String())
}
