// Package presence holds the per-profile IN/OUT state machine. It decides
// which event types are legal from the current state; advancing the state is
// the recorder's job and happens only inside its transaction.
package presence

import (
	dErrors "geoasistencia/pkg/domain-errors"
)

// Presence is the authoritative IN/OUT flag of a profile.
type Presence string

const (
	In  Presence = "IN"
	Out Presence = "OUT"
)

// EventType is the attendance action being attempted.
type EventType string

const (
	Entrada EventType = "ENTRADA"
	Salida  EventType = "SALIDA"
)

// ParseEventType validates a client-supplied tipo value.
func ParseEventType(raw string) (EventType, error) {
	switch EventType(raw) {
	case Entrada:
		return Entrada, nil
	case Salida:
		return Salida, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "tipo must be ENTRADA or SALIDA")
	}
}

// Transition returns the state that follows event from current.
// ENTRADA is valid only from OUT, SALIDA only from IN; anything else is a
// conflict. The machine has no terminal state; it cycles for the lifetime of
// the profile.
func Transition(current Presence, event EventType) (Presence, error) {
	switch event {
	case Entrada:
		if current == In {
			return current, dErrors.New(dErrors.CodeConflict, "already checked in")
		}
		return In, nil
	case Salida:
		if current == Out {
			return current, dErrors.New(dErrors.CodeConflict, "already checked out")
		}
		return Out, nil
	default:
		return current, dErrors.New(dErrors.CodeInvalidInput, "unknown event type")
	}
}
