package database

import (
	"context"
	"fmt"

	"github.com/paulmach/orb/encoding/wkt"
	"gorm.io/gorm"

	"rentiful/server/internal/models"
)

// GetProperty loads a property with its location and resolved coordinates
func (d *Database) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	var p models.Property
	err := d.db.WithContext(ctx).Preload("Location").First(&p, id).Error
	if err != nil {
		return nil, classify(err)
	}

	coords, err := d.locationCoordinates(ctx, d.db, p.LocationID)
	if err != nil {
		return nil, err
	}
	p.Location.Coordinates = coords
	return &p, nil
}

func (d *Database) locationCoordinates(ctx context.Context, db *gorm.DB, locationID int64) (models.Coordinates, error) {
	var text string
	err := db.WithContext(ctx).
		Raw(`SELECT ST_AsText(coordinates) FROM locations WHERE id = ?`, locationID).
		Row().Scan(&text)
	if err != nil {
		return models.Coordinates{}, classify(err)
	}

	point, err := wkt.UnmarshalPoint(text)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("failed to parse coordinates %q: %w", text, err)
	}
	return models.CoordinatesFromPoint(point), nil
}

// CreateProperty inserts the location and the property that references it in
// a single transaction and returns the property with location and manager.
func (d *Database) CreateProperty(ctx context.Context, loc models.Location, prop models.Property) (*models.Property, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		point := wkt.MarshalString(loc.Coordinates.Point())
		err := tx.Raw(`
			INSERT INTO locations (address, city, state, country, postal_code, time_zone, geocode_attempts, coordinates)
			VALUES (?, ?, ?, ?, ?, ?, ?, ST_GeomFromText(?, 4326)::geography)
			RETURNING id`,
			loc.Address, loc.City, loc.State, loc.Country, loc.PostalCode, loc.TimeZone, loc.GeocodeAttempts, point,
		).Row().Scan(&loc.ID)
		if err != nil {
			return fmt.Errorf("failed to insert location: %w", err)
		}

		prop.LocationID = loc.ID
		if err := tx.Omit("Location", "Manager", "Leases", "Applications").Create(&prop).Error; err != nil {
			return fmt.Errorf("failed to insert property: %w", err)
		}

		if err := tx.Preload("Manager").First(&prop, prop.ID).Error; err != nil {
			return fmt.Errorf("failed to reload property: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	prop.Location = loc
	return &prop, nil
}

// ManagerProperties returns every property managed by cognitoID
func (d *Database) ManagerProperties(ctx context.Context, cognitoID string) ([]models.Property, error) {
	var properties []models.Property
	err := d.db.WithContext(ctx).
		Preload("Location").
		Where("manager_cognito_id = ?", cognitoID).
		Order("posted_date DESC").
		Find(&properties).Error
	if err != nil {
		return nil, classify(err)
	}
	if err := d.attachCoordinates(ctx, properties); err != nil {
		return nil, err
	}
	return properties, nil
}

// attachCoordinates fills in the coordinates of already loaded locations
func (d *Database) attachCoordinates(ctx context.Context, properties []models.Property) error {
	if len(properties) == 0 {
		return nil
	}
	ids := make([]int64, len(properties))
	for i, p := range properties {
		ids[i] = p.LocationID
	}

	type coordinateRow struct {
		ID        int64
		Longitude float64
		Latitude  float64
	}
	var rows []coordinateRow
	err := d.db.WithContext(ctx).Raw(`
		SELECT id, ST_X(coordinates::geometry) AS longitude, ST_Y(coordinates::geometry) AS latitude
		FROM locations WHERE id IN ?`, ids).Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to load coordinates: %w", err)
	}

	byID := make(map[int64]models.Coordinates, len(rows))
	for _, r := range rows {
		byID[r.ID] = models.Coordinates{Longitude: r.Longitude, Latitude: r.Latitude}
	}
	for i := range properties {
		properties[i].Location.Coordinates = byID[properties[i].LocationID]
	}
	return nil
}
