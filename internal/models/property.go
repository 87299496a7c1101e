package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/paulmach/orb"
)

type Property struct {
	ID                int64          `json:"id" gorm:"primaryKey"`
	Name              string         `json:"name" gorm:"not null"`
	Description       string         `json:"description"`
	PricePerMonth     float64        `json:"pricePerMonth" gorm:"not null"`
	SecurityDeposit   float64        `json:"securityDeposit"`
	ApplicationFee    float64        `json:"applicationFee"`
	PhotoURLs         pq.StringArray `json:"photoUrls" gorm:"column:photo_urls;type:text[]"`
	Amenities         pq.StringArray `json:"amenities" gorm:"type:text[]"`
	Highlights        pq.StringArray `json:"highlights" gorm:"type:text[]"`
	IsPetsAllowed     bool           `json:"isPetsAllowed" gorm:"not null;default:false"`
	IsParkingIncluded bool           `json:"isParkingIncluded" gorm:"not null;default:false"`
	Beds              int            `json:"beds" gorm:"not null"`
	Baths             float64        `json:"baths" gorm:"not null"`
	SquareFeet        int            `json:"squareFeet" gorm:"not null"`
	PropertyType      PropertyType   `json:"propertyType" gorm:"type:text;not null"`
	PostedDate        time.Time      `json:"postedDate" gorm:"not null;default:now();index"`
	AverageRating     *float64       `json:"averageRating" gorm:"default:0"`
	NumberOfReviews   *int           `json:"numberOfReviews" gorm:"default:0"`
	LocationID        int64          `json:"locationId" gorm:"not null;uniqueIndex"`
	ManagerCognitoID  string         `json:"managerCognitoId" gorm:"not null;index"`

	Location     Location      `json:"location" gorm:"foreignKey:LocationID"`
	Manager      *Manager      `json:"manager,omitempty" gorm:"foreignKey:ManagerCognitoID;references:CognitoID"`
	Leases       []Lease       `json:"leases,omitempty" gorm:"foreignKey:PropertyID"`
	Applications []Application `json:"applications,omitempty" gorm:"foreignKey:PropertyID"`
}

// Coordinates is the client facing form of a stored geography point
type Coordinates struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

func CoordinatesFromPoint(p orb.Point) Coordinates {
	return Coordinates{Longitude: p.Lon(), Latitude: p.Lat()}
}

func (c Coordinates) Point() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// Location keeps its geography column out of gorm's reach; it is written and
// read through explicit PostGIS expressions.
type Location struct {
	ID              int64       `json:"id" gorm:"primaryKey"`
	Address         string      `json:"address" gorm:"not null"`
	City            string      `json:"city" gorm:"not null"`
	State           string      `json:"state" gorm:"not null"`
	Country         string      `json:"country" gorm:"not null"`
	PostalCode      string      `json:"postalCode" gorm:"not null"`
	TimeZone        string      `json:"timeZone"`
	GeocodeAttempts int         `json:"-" gorm:"not null;default:0"`
	Coordinates     Coordinates `json:"coordinates" gorm:"-"`
}

// Unresolved reports whether the location still sits on the (0,0) fallback point
func (l Location) Unresolved() bool {
	return l.Coordinates.Longitude == 0 && l.Coordinates.Latitude == 0
}
