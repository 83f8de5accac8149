// Package attendance implements the check-in/out path: one transaction that
// validates the presence transition, tests geofence membership, classifies
// the event against the assignment's schedule and writes the immutable event
// together with the presence flip.
package attendance

import (
	"time"

	"geoasistencia/internal/presence"
	"geoasistencia/internal/schedule"
	id "geoasistencia/pkg/domain"
)

// Event is one immutable row of the attendance ledger. It is never updated
// or deleted after the recording transaction commits.
type Event struct {
	ID         id.EventID
	ProfileID  id.ProfileID
	GeofenceID id.GeofenceID
	Type       presence.EventType
	Latitude   float64
	Longitude  float64
	Valid      bool
	Note       string
	RecordedAt time.Time
}

// Registration is what a successful Register returns: the event plus the
// matched zone context the client shows the user.
type Registration struct {
	Event          Event
	ZoneName       string
	DistanceMeters float64
	Classification schedule.Classification
	Presence       presence.Presence
}

// LastStatus is the read projection for the profile's current day.
type LastStatus struct {
	Presence presence.Presence
	Event    *Event
}
