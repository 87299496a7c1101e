package geometry

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentiful/server/internal/models"
)

func property(id int64, lon, lat float64) models.Property {
	return models.Property{
		ID:            id,
		Name:          "Listing",
		PricePerMonth: 1800,
		PropertyType:  models.PropertyTypeApartment,
		PhotoURLs:     []string{"https://example.com/a.jpg"},
		Location: models.Location{
			Address:     "1 Main St",
			City:        "Los Angeles",
			Coordinates: models.Coordinates{Longitude: lon, Latitude: lat},
		},
	}
}

func TestConvexHull(t *testing.T) {
	points := []orb.Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {1, 1}, {1, 0}}

	hull := ConvexHull(points)
	require.NotNil(t, hull)
	assert.True(t, hull.Closed())
	assert.Len(t, hull, 5)
	assert.ElementsMatch(t, []orb.Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}}, []orb.Point(hull[:4]))
	assert.Equal(t, orb.CCW, hull.Orientation())

	// input order is left alone
	assert.Equal(t, orb.Point{0, 0}, points[0])
	assert.Equal(t, orb.Point{1, 0}, points[5])
}

func TestConvexHull_Degenerate(t *testing.T) {
	assert.Nil(t, ConvexHull([]orb.Point{{0, 0}, {1, 1}}))
	assert.Nil(t, ConvexHull([]orb.Point{{0, 0}, {1, 1}, {2, 2}}))
}

func TestPropertyFeatures(t *testing.T) {
	props := []models.Property{
		property(1, -118.25, 34.05),
		property(2, -118.40, 34.10),
		property(3, 0, 0), // not geocoded yet
		property(4, -118.30, 33.95),
	}

	fc := PropertyFeatures(props)

	require.Len(t, fc.Features, 4)
	for _, f := range fc.Features[:3] {
		assert.Equal(t, KindListing, f.Properties["kind"])
	}
	assert.Equal(t, int64(1), fc.Features[0].Properties["id"])
	assert.Equal(t, orb.Point{-118.25, 34.05}, fc.Features[0].Geometry)
	assert.Equal(t, "https://example.com/a.jpg", fc.Features[0].Properties["photoUrl"])

	coverage := fc.Features[3]
	assert.Equal(t, KindCoverage, coverage.Properties["kind"])
	assert.Equal(t, 3, coverage.Properties["point_count"])

	assert.Equal(t, []float64{-118.40, 33.95, -118.25, 34.10}, []float64(fc.BBox))

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"FeatureCollection"`)
}

func TestPropertyFeatures_Empty(t *testing.T) {
	fc := PropertyFeatures(nil)

	assert.Empty(t, fc.Features)
	assert.Nil(t, fc.BBox)

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}
