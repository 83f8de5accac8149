package profile

import (
	"time"

	"geoasistencia/internal/presence"
	id "geoasistencia/pkg/domain"
)

// Role gates access to the administrative surface.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Status is the lifecycle state of a profile. Profiles are never hard
// deleted; DELETED is terminal but the row stays for the ledger's sake.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusDeleted   Status = "DELETED"
)

// Profile is an employee identity as the attendance engine sees it.
// The engine itself mutates only Presence; everything else changes through
// audited admin operations.
type Profile struct {
	ID             id.ProfileID
	PersonName     string
	EmployeeCode   string
	CredentialHash string
	Role           Role
	Status         Status
	Presence       presence.Presence
	JobTitle       string
	CreatedAt      time.Time
}

// CanRegister reports whether the profile may submit attendance events.
func (p Profile) CanRegister() bool {
	return p.Status == StatusActive
}

// Summary is the projection used by assignment listings.
type Summary struct {
	ID           id.ProfileID
	PersonName   string
	EmployeeCode string
	JobTitle     string
}
