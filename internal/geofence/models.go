package geofence

import (
	"time"

	id "geoasistencia/pkg/domain"
)

// Site groups geofences under one physical location.
type Site struct {
	ID        id.SiteID
	Name      string
	Address   string
	CreatedAt time.Time
}

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether the coordinate is inside the WGS84 domain.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// GeoFence is a circular zone within which a check-in/out is considered
// valid. Radius must be positive; the name is unique within its site.
type GeoFence struct {
	ID           id.GeofenceID
	SiteID       id.SiteID
	Name         string
	Center       Coordinate
	RadiusMeters float64
	CreatedAt    time.Time
}
