package config

// City represents a metro area used when seeding sample listings
type City struct {
	Name    string     `json:"name"`
	State   string     `json:"state"`
	Country string     `json:"country"`
	Center  [2]float64 `json:"center"` // longitude, latitude
}

// SeedCities is the list of cities the seed command can populate
var SeedCities = []City{
	{Name: "Los Angeles", State: "CA", Country: "United States", Center: [2]float64{-118.2437, 34.0522}},
	{Name: "Santa Monica", State: "CA", Country: "United States", Center: [2]float64{-118.4912, 34.0195}},
	{Name: "San Diego", State: "CA", Country: "United States", Center: [2]float64{-117.1611, 32.7157}},
	{Name: "New York", State: "NY", Country: "United States", Center: [2]float64{-74.0060, 40.7128}},
	{Name: "Chicago", State: "IL", Country: "United States", Center: [2]float64{-87.6298, 41.8781}},
}

// GetCityNames returns a list of seedable city names
func GetCityNames() []string {
	names := make([]string, len(SeedCities))
	for i, city := range SeedCities {
		names[i] = city.Name
	}
	return names
}

// GetCityByName returns a city configuration by name
func GetCityByName(name string) *City {
	for _, city := range SeedCities {
		if city.Name == name {
			return &city
		}
	}
	return nil
}
