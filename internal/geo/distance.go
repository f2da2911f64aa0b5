// Package geo provides the spatial primitives shared by the route optimizer
// and the duplicate detector: great-circle distance for routing-scale
// comparisons and a cheap planar degree-space distance for building-scale
// proximity checks. The two metrics are intentionally not unified; their
// thresholds (5 km vs 0.001 degrees) were validated separately.
package geo

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// earthRadiusKM is the mean Earth radius used by the haversine formula.
const earthRadiusKM = 6371.0

// originEpsilonDeg treats coordinates within this distance of (0,0) as
// absent. Data glitches in the source dataset park unknown locations at the
// null island.
const originEpsilonDeg = 0.0001

// Haversine returns the great-circle distance in kilometers between two
// lat/lng points in degrees. Pure and deterministic; callers pre-validate
// inputs.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}

// DegreeDistance returns the planar Euclidean distance between two points in
// raw degree space. This is a deliberately coarse metric: the duplicate
// detector only needs same-building resolution, where the planar
// approximation is adequate and much cheaper than haversine.
func DegreeDistance(lat1, lng1, lat2, lng2 float64) float64 {
	return xy.Distance(geom.Coord{lng1, lat1}, geom.Coord{lng2, lat2})
}

// ValidCoordinate reports whether a lat/lng pair carries a usable location.
// NaN components and points at or near (0,0) are treated as absent.
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	if math.Abs(lat) < originEpsilonDeg && math.Abs(lng) < originEpsilonDeg {
		return false
	}
	return true
}

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}
