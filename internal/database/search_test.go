package database

import (
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"rentiful/server/internal/filter"
	"rentiful/server/internal/models"
)

func TestBuildSearchQuery_Empty(t *testing.T) {
	q := BuildSearchQuery(filter.Filter{})

	assert.NotContains(t, q.SQL, "WHERE")
	assert.True(t, strings.HasSuffix(q.SQL, "ORDER BY p.posted_date DESC"))
	assert.Empty(t, q.Args)
}

func TestBuildSearchQuery_Predicates(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	f := filter.Filter{}.
		WithFavoriteIDs(3, 7).
		WithPrice(filter.Between(1000.0, 2500.0)).
		WithBeds(filter.Some(2)).
		WithBaths(filter.Some(1.5)).
		WithSquareFeet(filter.Range[int]{Min: filter.Some(500)}).
		WithPropertyType(filter.Some(models.PropertyTypeApartment)).
		WithAmenities(models.AmenityPool, models.AmenityGym).
		WithAvailableFrom(filter.Some(from))

	q := BuildSearchQuery(f)

	require.Contains(t, q.SQL, "WHERE p.id IN ?")
	for _, fragment := range []string{
		"p.price_per_month >= ?",
		"p.price_per_month <= ?",
		"p.beds >= ?",
		"p.baths >= ?",
		"p.square_feet >= ?",
		"p.property_type = ?",
		"p.amenities && ?::text[]",
		"NOT EXISTS",
		"lease.end_date > ?",
	} {
		assert.Contains(t, q.SQL, fragment)
	}
	assert.NotContains(t, q.SQL, "p.square_feet <= ?")
	assert.NotContains(t, q.SQL, "ST_DWithin")
	assert.Equal(t, 8, strings.Count(q.SQL, "\n        AND "))

	assert.Equal(t, []interface{}{
		[]int64{3, 7},
		1000.0,
		2500.0,
		2,
		1.5,
		500,
		"Apartment",
		pq.StringArray{"Pool", "Gym"},
		from,
	}, q.Args)
}

func TestBuildSearchQuery_Radius(t *testing.T) {
	f := filter.Filter{}.WithLocation("Los Angeles, CA", orb.Point{-118.25, 34.05})

	q := BuildSearchQuery(f)

	assert.Contains(t, q.SQL, "ST_DWithin(l.coordinates, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography, ?)")
	assert.Equal(t, []interface{}{-118.25, 34.05, SearchRadiusMeters}, q.Args)
	assert.Equal(t, 50000, SearchRadiusMeters)
}

func TestBuildSearchQuery_Deterministic(t *testing.T) {
	f := filter.Default().WithBeds(filter.Some(3))

	assert.Equal(t, BuildSearchQuery(f), BuildSearchQuery(f))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil))
	assert.ErrorIs(t, classify(gorm.ErrRecordNotFound), ErrNotFound)
}
