package database

import (
	"fmt"

	"rentiful/server/internal/models"
)

// RunMigrations creates the schema. The geography column and its index are
// managed by hand because gorm has no notion of PostGIS types.
func (d *Database) RunMigrations() error {
	if err := d.db.Exec(`CREATE EXTENSION IF NOT EXISTS postgis`).Error; err != nil {
		return fmt.Errorf("failed to enable postgis: %w", err)
	}

	err := d.db.AutoMigrate(
		&models.Manager{},
		&models.Tenant{},
		&models.Location{},
		&models.Property{},
		&models.Lease{},
		&models.Payment{},
		&models.Application{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	statements := []string{
		`ALTER TABLE locations ADD COLUMN IF NOT EXISTS coordinates geography(Point, 4326) NOT NULL DEFAULT ST_SetSRID(ST_MakePoint(0, 0), 4326)::geography`,
		`CREATE INDEX IF NOT EXISTS idx_locations_coordinates ON locations USING GIST (coordinates)`,
		`CREATE INDEX IF NOT EXISTS idx_properties_amenities ON properties USING GIN (amenities)`,
	}
	for _, stmt := range statements {
		if err := d.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	return nil
}
