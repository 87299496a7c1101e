package database

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"gorm.io/gorm"

	"rentiful/server/internal/models"
)

// MaxGeocodeAttempts caps how often the backfill retries one address
const MaxGeocodeAttempts = 3

// LocationsNeedingGeocode returns up to limit locations that still sit on the
// (0,0) fallback point and have not exhausted their geocode attempts.
func (d *Database) LocationsNeedingGeocode(ctx context.Context, limit int) ([]*models.Location, error) {
	var locations []*models.Location
	err := d.db.WithContext(ctx).
		Where("ST_X(coordinates::geometry) = 0 AND ST_Y(coordinates::geometry) = 0").
		Where("geocode_attempts < ?", MaxGeocodeAttempts).
		Order("id ASC").
		Limit(limit).
		Find(&locations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select locations: %w", err)
	}
	return locations, nil
}

// UpdateLocationCoordinates records one geocode attempt. A nil point leaves
// the coordinates untouched and only counts the attempt.
func UpdateLocationCoordinates(tx *gorm.DB, id int64, point *orb.Point, timeZone string) error {
	var res *gorm.DB
	if point == nil {
		res = tx.Exec(`UPDATE locations SET geocode_attempts = geocode_attempts + 1 WHERE id = ?`, id)
	} else {
		res = tx.Exec(`
			UPDATE locations
			SET coordinates = ST_GeomFromText(?, 4326)::geography,
			    time_zone = ?,
			    geocode_attempts = geocode_attempts + 1
			WHERE id = ?`,
			wkt.MarshalString(*point), timeZone, id)
	}
	if res.Error != nil {
		return fmt.Errorf("failed to update location %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("location %d: %w", id, ErrNotFound)
	}
	return nil
}
