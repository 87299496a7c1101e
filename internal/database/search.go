package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"rentiful/server/internal/filter"
	"rentiful/server/internal/models"
)

// SearchRadiusMeters bounds the coordinate filter
const SearchRadiusMeters = 50000

const searchSelect = `
        SELECT
            p.id,
            p.name,
            COALESCE(p.description, '') AS description,
            p.price_per_month,
            p.security_deposit,
            p.application_fee,
            p.photo_urls,
            p.amenities,
            p.highlights,
            p.is_pets_allowed,
            p.is_parking_included,
            p.beds,
            p.baths,
            p.square_feet,
            p.property_type,
            p.posted_date,
            p.average_rating,
            p.number_of_reviews,
            p.location_id,
            p.manager_cognito_id,
            l.address,
            l.city,
            l.state,
            l.country,
            l.postal_code,
            COALESCE(l.time_zone, '') AS time_zone,
            ST_X(l.coordinates::geometry) AS longitude,
            ST_Y(l.coordinates::geometry) AS latitude
        FROM properties p
        JOIN locations l ON p.location_id = l.id`

// SearchQuery is a compiled search statement with positional arguments
type SearchQuery struct {
	SQL  string
	Args []interface{}
}

// BuildSearchQuery turns every set field of f into one predicate and joins
// them with AND. An empty filter compiles to an unrestricted scan.
func BuildSearchQuery(f filter.Filter) SearchQuery {
	var conditions []string
	var args []interface{}

	add := func(condition string, values ...interface{}) {
		conditions = append(conditions, condition)
		args = append(args, values...)
	}

	if len(f.FavoriteIDs) > 0 {
		add("p.id IN ?", f.FavoriteIDs)
	}
	if v, ok := f.Price.Min.Get(); ok {
		add("p.price_per_month >= ?", v)
	}
	if v, ok := f.Price.Max.Get(); ok {
		add("p.price_per_month <= ?", v)
	}
	if v, ok := f.Beds.Get(); ok {
		add("p.beds >= ?", v)
	}
	if v, ok := f.Baths.Get(); ok {
		add("p.baths >= ?", v)
	}
	if v, ok := f.SquareFeet.Min.Get(); ok {
		add("p.square_feet >= ?", v)
	}
	if v, ok := f.SquareFeet.Max.Get(); ok {
		add("p.square_feet <= ?", v)
	}
	if v, ok := f.PropertyType.Get(); ok {
		add("p.property_type = ?", string(v))
	}
	if len(f.Amenities) > 0 {
		names := make(pq.StringArray, len(f.Amenities))
		for i, a := range f.Amenities {
			names[i] = string(a)
		}
		add("p.amenities && ?::text[]", names)
	}
	if v, ok := f.AvailableFrom.Get(); ok {
		add(`NOT EXISTS (
            SELECT 1 FROM leases lease
            WHERE lease.property_id = p.id
            AND lease.end_date > ?
        )`, v)
	}
	if p, ok := f.Coordinates.Get(); ok {
		add("ST_DWithin(l.coordinates, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography, ?)",
			p.Lon(), p.Lat(), SearchRadiusMeters)
	}

	var sb strings.Builder
	sb.WriteString(searchSelect)
	if len(conditions) > 0 {
		sb.WriteString("\n        WHERE ")
		sb.WriteString(strings.Join(conditions, "\n        AND "))
	}
	sb.WriteString("\n        ORDER BY p.posted_date DESC")

	return SearchQuery{SQL: sb.String(), Args: args}
}

// SearchProperties runs the compiled filter and returns each property with its
// location resolved to plain coordinates.
func (d *Database) SearchProperties(ctx context.Context, f filter.Filter) ([]models.Property, error) {
	q := BuildSearchQuery(f)

	rows, err := d.db.WithContext(ctx).Raw(q.SQL, q.Args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	defer rows.Close()

	properties := []models.Property{}
	for rows.Next() {
		var p models.Property
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.PricePerMonth,
			&p.SecurityDeposit,
			&p.ApplicationFee,
			&p.PhotoURLs,
			&p.Amenities,
			&p.Highlights,
			&p.IsPetsAllowed,
			&p.IsParkingIncluded,
			&p.Beds,
			&p.Baths,
			&p.SquareFeet,
			&p.PropertyType,
			&p.PostedDate,
			&p.AverageRating,
			&p.NumberOfReviews,
			&p.LocationID,
			&p.ManagerCognitoID,
			&p.Location.Address,
			&p.Location.City,
			&p.Location.State,
			&p.Location.Country,
			&p.Location.PostalCode,
			&p.Location.TimeZone,
			&p.Location.Coordinates.Longitude,
			&p.Location.Coordinates.Latitude,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		p.Location.ID = p.LocationID
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read properties: %w", err)
	}
	return properties, nil
}
