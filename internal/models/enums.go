package models

import "fmt"

type PropertyType string

const (
	PropertyTypeRooms     PropertyType = "Rooms"
	PropertyTypeTinyhouse PropertyType = "Tinyhouse"
	PropertyTypeApartment PropertyType = "Apartment"
	PropertyTypeVilla     PropertyType = "Villa"
	PropertyTypeTownhouse PropertyType = "Townhouse"
	PropertyTypeCottage   PropertyType = "Cottage"
)

var propertyTypes = []PropertyType{
	PropertyTypeRooms,
	PropertyTypeTinyhouse,
	PropertyTypeApartment,
	PropertyTypeVilla,
	PropertyTypeTownhouse,
	PropertyTypeCottage,
}

// ParsePropertyType returns the property type matching s exactly
func ParsePropertyType(s string) (PropertyType, error) {
	for _, t := range propertyTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown property type: %q", s)
}

type Amenity string

const (
	AmenityWasherDryer       Amenity = "WasherDryer"
	AmenityAirConditioning   Amenity = "AirConditioning"
	AmenityDishwasher        Amenity = "Dishwasher"
	AmenityHighSpeedInternet Amenity = "HighSpeedInternet"
	AmenityHardwoodFloors    Amenity = "HardwoodFloors"
	AmenityWalkInClosets     Amenity = "WalkInClosets"
	AmenityMicrowave         Amenity = "Microwave"
	AmenityRefrigerator      Amenity = "Refrigerator"
	AmenityPool              Amenity = "Pool"
	AmenityGym               Amenity = "Gym"
	AmenityParking           Amenity = "Parking"
	AmenityPetsAllowed       Amenity = "PetsAllowed"
	AmenityWiFi              Amenity = "WiFi"
)

var amenities = []Amenity{
	AmenityWasherDryer,
	AmenityAirConditioning,
	AmenityDishwasher,
	AmenityHighSpeedInternet,
	AmenityHardwoodFloors,
	AmenityWalkInClosets,
	AmenityMicrowave,
	AmenityRefrigerator,
	AmenityPool,
	AmenityGym,
	AmenityParking,
	AmenityPetsAllowed,
	AmenityWiFi,
}

func ParseAmenity(s string) (Amenity, error) {
	for _, a := range amenities {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown amenity: %q", s)
}

type Highlight string

const (
	HighlightHighSpeedInternetAccess Highlight = "HighSpeedInternetAccess"
	HighlightWasherDryer             Highlight = "WasherDryer"
	HighlightAirConditioning         Highlight = "AirConditioning"
	HighlightHeating                 Highlight = "Heating"
	HighlightSmokeFree               Highlight = "SmokeFree"
	HighlightCableReady              Highlight = "CableReady"
	HighlightSatelliteTV             Highlight = "SatelliteTV"
	HighlightDoubleVanities          Highlight = "DoubleVanities"
	HighlightTubShower               Highlight = "TubShower"
	HighlightIntercom                Highlight = "Intercom"
	HighlightSprinklerSystem         Highlight = "SprinklerSystem"
	HighlightRecentlyRenovated       Highlight = "RecentlyRenovated"
	HighlightCloseToTransit          Highlight = "CloseToTransit"
	HighlightGreatView               Highlight = "GreatView"
	HighlightQuietNeighborhood       Highlight = "QuietNeighborhood"
)

var highlights = []Highlight{
	HighlightHighSpeedInternetAccess,
	HighlightWasherDryer,
	HighlightAirConditioning,
	HighlightHeating,
	HighlightSmokeFree,
	HighlightCableReady,
	HighlightSatelliteTV,
	HighlightDoubleVanities,
	HighlightTubShower,
	HighlightIntercom,
	HighlightSprinklerSystem,
	HighlightRecentlyRenovated,
	HighlightCloseToTransit,
	HighlightGreatView,
	HighlightQuietNeighborhood,
}

func ParseHighlight(s string) (Highlight, error) {
	for _, h := range highlights {
		if string(h) == s {
			return h, nil
		}
	}
	return "", fmt.Errorf("unknown highlight: %q", s)
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "Pending"
	ApplicationDenied   ApplicationStatus = "Denied"
	ApplicationApproved ApplicationStatus = "Approved"
)

func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	switch ApplicationStatus(s) {
	case ApplicationPending, ApplicationDenied, ApplicationApproved:
		return ApplicationStatus(s), nil
	}
	return "", fmt.Errorf("unknown application status: %q", s)
}

type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "Pending"
	PaymentPaid          PaymentStatus = "Paid"
	PaymentPartiallyPaid PaymentStatus = "PartiallyPaid"
	PaymentOverdue       PaymentStatus = "Overdue"
)
