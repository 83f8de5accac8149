// Package assignment manages the many-to-many relation between profiles and
// geofences. Each pairing carries its own schedule; a (profile, zone) pair is
// unique and every mutation of the relation is audited.
package assignment

import (
	"time"

	"geoasistencia/internal/geofence"
	"geoasistencia/internal/profile"
	"geoasistencia/internal/schedule"
	id "geoasistencia/pkg/domain"
)

// Assignment links one profile to one geofence with its working schedule.
type Assignment struct {
	ProfileID  id.ProfileID
	GeofenceID id.GeofenceID
	Schedule   schedule.Schedule
	CreatedAt  time.Time
}

// ZoneSchedule is the projection the attendance path consumes: the zones a
// profile may register from, each with the schedule to classify against.
type ZoneSchedule struct {
	Zone     geofence.GeoFence
	Schedule schedule.Schedule
}

// AssignedProfile is the admin listing projection for one zone's roster.
type AssignedProfile struct {
	Profile    profile.Summary
	Schedule   schedule.Schedule
	AssignedAt time.Time
}
