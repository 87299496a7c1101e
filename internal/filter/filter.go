package filter

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"rentiful/server/internal/models"
)

// AnyValue is the sentinel the client sends for fields it leaves open
const AnyValue = "any"

const dateLayout = "2006-01-02"

var ErrInvalidFilter = errors.New("invalid filter")

// Query parameter names accepted by GET /properties
const (
	ParamLocation      = "location"
	ParamPriceMin      = "priceMin"
	ParamPriceMax      = "priceMax"
	ParamBeds          = "beds"
	ParamBaths         = "baths"
	ParamPropertyType  = "propertyType"
	ParamSquareFeetMin = "squareFeetMin"
	ParamSquareFeetMax = "squareFeetMax"
	ParamAmenities     = "amenities"
	ParamAvailableFrom = "availableFrom"
	ParamFavoriteIDs   = "favoriteIds"
	ParamLatitude      = "latitude"
	ParamLongitude     = "longitude"
)

// Filter is the canonical property search criteria. Values are never mutated in
// place; the With methods return modified copies.
type Filter struct {
	Location      Optional[string]
	Coordinates   Optional[orb.Point] // longitude, latitude
	Price         Range[float64]
	Beds          Optional[int]
	Baths         Optional[float64]
	PropertyType  Optional[models.PropertyType]
	SquareFeet    Range[int]
	Amenities     []models.Amenity
	AvailableFrom Optional[time.Time]
	FavoriteIDs   []int64
}

// Default is the search state a first visit starts from
func Default() Filter {
	return Filter{
		Location:    Some("Los Angeles, CA"),
		Coordinates: Some(orb.Point{-118.25, 34.05}),
	}
}

func (f Filter) WithLocation(name string, point orb.Point) Filter {
	f.Location = Some(name)
	f.Coordinates = Some(point)
	return f
}

func (f Filter) WithoutCoordinates() Filter {
	f.Coordinates = None[orb.Point]()
	return f
}

func (f Filter) WithPrice(r Range[float64]) Filter {
	f.Price = r
	return f
}

func (f Filter) WithSquareFeet(r Range[int]) Filter {
	f.SquareFeet = r
	return f
}

func (f Filter) WithBeds(beds Optional[int]) Filter {
	f.Beds = beds
	return f
}

func (f Filter) WithBaths(baths Optional[float64]) Filter {
	f.Baths = baths
	return f
}

func (f Filter) WithPropertyType(pt Optional[models.PropertyType]) Filter {
	f.PropertyType = pt
	return f
}

func (f Filter) WithAmenities(amenities ...models.Amenity) Filter {
	f.Amenities = slices.Clone(amenities)
	return f
}

func (f Filter) WithAvailableFrom(date Optional[time.Time]) Filter {
	f.AvailableFrom = date
	return f
}

func (f Filter) WithFavoriteIDs(ids ...int64) Filter {
	f.FavoriteIDs = slices.Clone(ids)
	return f
}

// IsEmpty reports whether no field would produce a search predicate
func (f Filter) IsEmpty() bool {
	return !f.Coordinates.IsSet() &&
		!f.Price.IsSet() &&
		!f.Beds.IsSet() &&
		!f.Baths.IsSet() &&
		!f.PropertyType.IsSet() &&
		!f.SquareFeet.IsSet() &&
		len(f.Amenities) == 0 &&
		!f.AvailableFrom.IsSet() &&
		len(f.FavoriteIDs) == 0
}

// Parse normalizes raw query parameters into a Filter. Empty and "any" values
// are dropped, malformed numbers and enum values are rejected. An unparseable
// availableFrom is ignored rather than rejected.
func Parse(values url.Values) (Filter, error) {
	var f Filter
	var err error

	if v := clean(values.Get(ParamLocation)); v != "" {
		f.Location = Some(v)
	}
	if f.Price.Min, err = parseFloat(values, ParamPriceMin); err != nil {
		return Filter{}, err
	}
	if f.Price.Max, err = parseFloat(values, ParamPriceMax); err != nil {
		return Filter{}, err
	}
	if f.Beds, err = parseInt(values, ParamBeds); err != nil {
		return Filter{}, err
	}
	if f.Baths, err = parseFloat(values, ParamBaths); err != nil {
		return Filter{}, err
	}
	if f.SquareFeet.Min, err = parseInt(values, ParamSquareFeetMin); err != nil {
		return Filter{}, err
	}
	if f.SquareFeet.Max, err = parseInt(values, ParamSquareFeetMax); err != nil {
		return Filter{}, err
	}

	if v := clean(values.Get(ParamPropertyType)); v != "" {
		pt, err := models.ParsePropertyType(v)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %s: %v", ErrInvalidFilter, ParamPropertyType, err)
		}
		f.PropertyType = Some(pt)
	}

	for _, item := range splitList(values.Get(ParamAmenities)) {
		amenity, err := models.ParseAmenity(item)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %s: %v", ErrInvalidFilter, ParamAmenities, err)
		}
		if !slices.Contains(f.Amenities, amenity) {
			f.Amenities = append(f.Amenities, amenity)
		}
	}

	if v := clean(values.Get(ParamAvailableFrom)); v != "" {
		if date, ok := parseDate(v); ok {
			f.AvailableFrom = Some(date)
		}
	}

	for _, item := range splitList(values.Get(ParamFavoriteIDs)) {
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %s: %q is not an id", ErrInvalidFilter, ParamFavoriteIDs, item)
		}
		f.FavoriteIDs = append(f.FavoriteIDs, id)
	}

	lat, err := parseFloat(values, ParamLatitude)
	if err != nil {
		return Filter{}, err
	}
	lng, err := parseFloat(values, ParamLongitude)
	if err != nil {
		return Filter{}, err
	}
	latV, latOK := lat.Get()
	lngV, lngOK := lng.Get()
	if latOK && lngOK {
		f.Coordinates = Some(orb.Point{lngV, latV})
	}

	return f, nil
}

// Encode serializes the filter into query parameters, omitting unset fields
func (f Filter) Encode() url.Values {
	values := url.Values{}
	if v, ok := f.Location.Get(); ok {
		values.Set(ParamLocation, v)
	}
	if v, ok := f.Price.Min.Get(); ok {
		values.Set(ParamPriceMin, formatFloat(v))
	}
	if v, ok := f.Price.Max.Get(); ok {
		values.Set(ParamPriceMax, formatFloat(v))
	}
	if v, ok := f.Beds.Get(); ok {
		values.Set(ParamBeds, strconv.Itoa(v))
	}
	if v, ok := f.Baths.Get(); ok {
		values.Set(ParamBaths, formatFloat(v))
	}
	if v, ok := f.PropertyType.Get(); ok {
		values.Set(ParamPropertyType, string(v))
	}
	if v, ok := f.SquareFeet.Min.Get(); ok {
		values.Set(ParamSquareFeetMin, strconv.Itoa(v))
	}
	if v, ok := f.SquareFeet.Max.Get(); ok {
		values.Set(ParamSquareFeetMax, strconv.Itoa(v))
	}
	if len(f.Amenities) > 0 {
		names := make([]string, len(f.Amenities))
		for i, a := range f.Amenities {
			names[i] = string(a)
		}
		values.Set(ParamAmenities, strings.Join(names, ","))
	}
	if v, ok := f.AvailableFrom.Get(); ok {
		values.Set(ParamAvailableFrom, v.Format(dateLayout))
	}
	if len(f.FavoriteIDs) > 0 {
		ids := make([]string, len(f.FavoriteIDs))
		for i, id := range f.FavoriteIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		values.Set(ParamFavoriteIDs, strings.Join(ids, ","))
	}
	if p, ok := f.Coordinates.Get(); ok {
		values.Set(ParamLatitude, formatFloat(p.Lat()))
		values.Set(ParamLongitude, formatFloat(p.Lon()))
	}
	return values
}

// CacheKey identifies the result set of this filter. The location label is
// excluded because it never reaches the query.
func (f Filter) CacheKey() string {
	values := f.Encode()
	values.Del(ParamLocation)
	hash := md5.Sum([]byte(values.Encode()))
	return "properties:" + hex.EncodeToString(hash[:])
}

func clean(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, AnyValue) {
		return ""
	}
	return v
}

func splitList(raw string) []string {
	if clean(raw) == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = clean(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func parseFloat(values url.Values, key string) (Optional[float64], error) {
	v := clean(values.Get(key))
	if v == "" {
		return None[float64](), nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return None[float64](), fmt.Errorf("%w: %s: %q is not a number", ErrInvalidFilter, key, v)
	}
	return Some(n), nil
}

func parseInt(values url.Values, key string) (Optional[int], error) {
	v := clean(values.Get(key))
	if v == "" {
		return None[int](), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return None[int](), fmt.Errorf("%w: %s: %q is not a whole number", ErrInvalidFilter, key, v)
	}
	return Some(n), nil
}

func parseDate(v string) (time.Time, bool) {
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
