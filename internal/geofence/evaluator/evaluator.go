// Package evaluator implements geofence membership testing. It is a pure
// function over coordinates and zones; "not in any zone" is a business
// outcome, never an error.
package evaluator

import (
	"math"

	"geoasistencia/internal/geofence"
)

const earthRadiusMeters = 6371000.0

// Match is the zone a coordinate fell inside, with the geodesic distance to
// its center.
type Match struct {
	Zone           geofence.GeoFence
	DistanceMeters float64
}

// Distance returns the great-circle distance in meters between two points,
// via the haversine formula. Radii here are tens to hundreds of meters, so
// planar math on degrees would be wrong by orders of magnitude; a spherical
// model is accurate to well under a meter at these scales.
func Distance(a, b geofence.Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Nearest returns the closest zone whose distance from coord to its center is
// within the zone's radius. The boundary is inclusive: distance == radius
// counts as inside. The second return is false when no zone qualifies.
func Nearest(coord geofence.Coordinate, zones []geofence.GeoFence) (Match, bool) {
	var best Match
	found := false
	for _, zone := range zones {
		d := Distance(coord, zone.Center)
		if d > zone.RadiusMeters {
			continue
		}
		if !found || d < best.DistanceMeters {
			best = Match{Zone: zone, DistanceMeters: d}
			found = true
		}
	}
	return best, found
}
