package domain

import (
	"github.com/google/uuid"

	dErrors "geoasistencia/pkg/domain-errors"
)

// Typed identifiers for the core entities. Using distinct types keeps a
// ProfileID from ever being passed where a GeofenceID is expected; the
// compiler enforces what foreign keys only suggest.
type (
	ProfileID  uuid.UUID
	SiteID     uuid.UUID
	GeofenceID uuid.UUID
	EventID    uuid.UUID
	AuditID    uuid.UUID
)

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseProfileID validates and returns a ProfileID.
func ParseProfileID(s string) (ProfileID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return ProfileID{}, err
	}
	return ProfileID(parsed), nil
}

// ParseSiteID validates and returns a SiteID.
func ParseSiteID(s string) (SiteID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return SiteID{}, err
	}
	return SiteID(parsed), nil
}

// ParseGeofenceID validates and returns a GeofenceID.
func ParseGeofenceID(s string) (GeofenceID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return GeofenceID{}, err
	}
	return GeofenceID(parsed), nil
}

func NewProfileID() ProfileID   { return ProfileID(uuid.New()) }
func NewSiteID() SiteID         { return SiteID(uuid.New()) }
func NewGeofenceID() GeofenceID { return GeofenceID(uuid.New()) }
func NewEventID() EventID       { return EventID(uuid.New()) }
func NewAuditID() AuditID       { return AuditID(uuid.New()) }

func (id ProfileID) String() string  { return uuid.UUID(id).String() }
func (id SiteID) String() string     { return uuid.UUID(id).String() }
func (id GeofenceID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string    { return uuid.UUID(id).String() }
func (id AuditID) String() string    { return uuid.UUID(id).String() }

func (id ProfileID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id SiteID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id GeofenceID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AuditID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
