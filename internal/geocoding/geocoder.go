package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

// Address is the structured form of a postal address sent to Nominatim
type Address struct {
	Street     string
	City       string
	State      string
	Country    string
	PostalCode string
}

// Key normalizes the address into a cache key
func (a Address) Key() string {
	parts := []string{a.Street, a.PostalCode, a.City, a.State, a.Country}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "|")
}

func (a Address) String() string {
	var parts []string
	for _, p := range []string{a.Street, a.City, a.State, a.PostalCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type Options struct {
	BaseURL     string
	UserAgent   string
	MinInterval time.Duration
	Timeout     time.Duration
}

type Geocoder struct {
	logger  *logrus.Logger
	client  *http.Client
	cache   *Cache
	opts    Options
	limitMu sync.Mutex
	lastReq time.Time
}

// NewGeocoder builds a Nominatim client. cache may be nil to disable caching.
func NewGeocoder(logger *logrus.Logger, cache *Cache, opts Options) *Geocoder {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Geocoder{
		logger: logger,
		client: &http.Client{Timeout: opts.Timeout},
		cache:  cache,
		opts:   opts,
	}
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves addr to its best matching point. found is false when the
// upstream service has no match; err is reserved for transport and decoding
// failures.
func (g *Geocoder) Geocode(ctx context.Context, addr Address) (orb.Point, bool, error) {
	key := addr.Key()
	if g.cache != nil {
		if p, ok := g.cache.Get(ctx, key); ok {
			g.logger.WithFields(logrus.Fields{
				"address":   addr.String(),
				"longitude": p.Lon(),
				"latitude":  p.Lat(),
				"source":    "cache",
			}).Debug("Found coordinates in cache")
			return p, true, nil
		}
	}

	if err := g.wait(ctx); err != nil {
		return orb.Point{}, false, err
	}

	params := url.Values{
		"street":     []string{addr.Street},
		"city":       []string{addr.City},
		"country":    []string{addr.Country},
		"postalcode": []string{addr.PostalCode},
		"format":     []string{"json"},
		"limit":      []string{"1"},
	}
	if addr.State != "" {
		params.Set("state", addr.State)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(g.opts.BaseURL, "/")+"/search", nil)
	if err != nil {
		return orb.Point{}, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", g.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).WithField("address", addr.String()).Error("Geocoding request failed")
		return orb.Point{}, false, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return orb.Point{}, false, fmt.Errorf("geocoding request failed: unexpected status %d", resp.StatusCode)
	}

	var result nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		g.logger.WithError(err).WithField("address", addr.String()).Error("Failed to parse response")
		return orb.Point{}, false, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result) == 0 || result[0].Lat == "" || result[0].Lon == "" {
		g.logger.WithField("address", addr.String()).Warn("No results found")
		return orb.Point{}, false, nil
	}

	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return orb.Point{}, false, fmt.Errorf("invalid longitude %q: %w", result[0].Lon, err)
	}
	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return orb.Point{}, false, fmt.Errorf("invalid latitude %q: %w", result[0].Lat, err)
	}
	point := orb.Point{lon, lat}

	g.logger.WithFields(logrus.Fields{
		"address":   addr.String(),
		"longitude": lon,
		"latitude":  lat,
		"source":    "nominatim",
	}).Info("Successfully geocoded address")

	if g.cache != nil {
		g.cache.Set(ctx, key, point)
	}
	return point, true, nil
}

// wait spaces upstream requests at least MinInterval apart
func (g *Geocoder) wait(ctx context.Context) error {
	g.limitMu.Lock()
	defer g.limitMu.Unlock()

	if delay := g.opts.MinInterval - time.Since(g.lastReq); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	g.lastReq = time.Now()
	return nil
}
