package models

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestParsePropertyType(t *testing.T) {
	pt, err := ParsePropertyType("Apartment")
	assert.NoError(t, err)
	assert.Equal(t, PropertyTypeApartment, pt)

	_, err = ParsePropertyType("apartment")
	assert.Error(t, err)

	_, err = ParsePropertyType("any")
	assert.Error(t, err)
}

func TestParseAmenityAndHighlight(t *testing.T) {
	a, err := ParseAmenity("Pool")
	assert.NoError(t, err)
	assert.Equal(t, AmenityPool, a)

	_, err = ParseAmenity("Helipad")
	assert.Error(t, err)

	h, err := ParseHighlight("GreatView")
	assert.NoError(t, err)
	assert.Equal(t, HighlightGreatView, h)
}

func TestParseApplicationStatus(t *testing.T) {
	for _, s := range []string{"Pending", "Denied", "Approved"} {
		status, err := ParseApplicationStatus(s)
		assert.NoError(t, err)
		assert.Equal(t, ApplicationStatus(s), status)
	}
	_, err := ParseApplicationStatus("Withdrawn")
	assert.Error(t, err)
}

func TestCoordinatesRoundTrip(t *testing.T) {
	c := CoordinatesFromPoint(orb.Point{-118.25, 34.05})
	assert.Equal(t, -118.25, c.Longitude)
	assert.Equal(t, 34.05, c.Latitude)
	assert.Equal(t, orb.Point{-118.25, 34.05}, c.Point())

	assert.True(t, Location{}.Unresolved())
	assert.False(t, Location{Coordinates: c}.Unresolved())
}
