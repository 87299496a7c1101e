package geometry

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"rentiful/server/internal/models"
)

const (
	KindListing  = "listing"
	KindCoverage = "coverage"
)

// PropertyFeatures turns search results into a GeoJSON feature collection for
// the map. Properties still waiting for coordinates are left out. When at
// least three listings are present, a convex hull of their locations is added
// as a coverage feature.
func PropertyFeatures(properties []models.Property) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	points := make([]orb.Point, 0, len(properties))
	for _, p := range properties {
		if p.Location.Unresolved() {
			continue
		}
		point := p.Location.Coordinates.Point()
		points = append(points, point)

		feature := geojson.NewFeature(point)
		feature.ID = p.ID
		feature.Properties = geojson.Properties{
			"kind":          KindListing,
			"id":            p.ID,
			"name":          p.Name,
			"pricePerMonth": p.PricePerMonth,
			"beds":          p.Beds,
			"baths":         p.Baths,
			"propertyType":  string(p.PropertyType),
			"address":       p.Location.Address,
			"city":          p.Location.City,
		}
		if len(p.PhotoURLs) > 0 {
			feature.Properties["photoUrl"] = p.PhotoURLs[0]
		}
		fc.Append(feature)
	}

	if len(points) == 0 {
		return fc
	}
	fc.BBox = geojson.NewBBox(orb.MultiPoint(points).Bound())

	if hull := ConvexHull(points); hull != nil {
		coverage := geojson.NewFeature(orb.Polygon{hull})
		coverage.Properties = geojson.Properties{
			"kind":        KindCoverage,
			"point_count": len(points),
			"hull_type":   "convex",
		}
		fc.Append(coverage)
	}
	return fc
}

// ConvexHull returns the closed counter clockwise hull ring of points, or nil
// when the points do not span an area.
func ConvexHull(points []orb.Point) orb.Ring {
	if len(points) < 3 {
		return nil
	}

	sorted := make([]orb.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] == sorted[j][0] {
			return sorted[i][1] < sorted[j][1]
		}
		return sorted[i][0] < sorted[j][0]
	})

	// monotone chain
	hull := make([]orb.Point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// the last point repeats the first, closing the ring
	if len(hull) < 4 {
		return nil
	}
	return orb.Ring(hull)
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}
