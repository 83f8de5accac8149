// Package schedule validates assignment schedules and classifies attendance
// events against them. Times are wall-clock "HH:MM" strings in 24-hour
// format; because the format is fixed and zero-padded, lexicographic
// comparison is equivalent to numeric comparison.
package schedule

import (
	"regexp"
	"strings"
	"time"

	"geoasistencia/internal/presence"
	dErrors "geoasistencia/pkg/domain-errors"
)

// timePattern accepts 00:00 through 23:59.
var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// Schedule is the entry/exit window of one assignment.
type Schedule struct {
	Entry string
	Exit  string
}

// Classification labels an event relative to its schedule.
type Classification string

const (
	OnTime   Classification = "on time"
	Late     Classification = "late"
	Overtime Classification = "overtime"
)

// Parse validates the HH:MM format of both times and that entry is strictly
// before exit.
func Parse(entry, exit string) (Schedule, error) {
	entry = strings.TrimSpace(entry)
	exit = strings.TrimSpace(exit)

	if entry == "" {
		return Schedule{}, dErrors.New(dErrors.CodeInvalidInput, "hora_entrada is required")
	}
	if exit == "" {
		return Schedule{}, dErrors.New(dErrors.CodeInvalidInput, "hora_salida is required")
	}
	if !timePattern.MatchString(entry) {
		return Schedule{}, dErrors.New(dErrors.CodeInvalidInput, "hora_entrada must be HH:MM (e.g. 08:30)")
	}
	if !timePattern.MatchString(exit) {
		return Schedule{}, dErrors.New(dErrors.CodeInvalidInput, "hora_salida must be HH:MM (e.g. 17:00)")
	}
	if entry >= exit {
		return Schedule{}, dErrors.New(dErrors.CodeInvalidInput, "hora_salida must be after hora_entrada")
	}

	return Schedule{Entry: entry, Exit: exit}, nil
}

// WallClock renders a server timestamp as HH:MM in the given location.
// The location is the one configured for the deployment; client clocks are
// never consulted.
func WallClock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

// Classify labels an event. Boundary equality counts as on time.
func (s Schedule) Classify(event presence.EventType, wallClock string) Classification {
	switch event {
	case presence.Entrada:
		if wallClock <= s.Entry {
			return OnTime
		}
		return Late
	case presence.Salida:
		if wallClock <= s.Exit {
			return OnTime
		}
		return Overtime
	default:
		return OnTime
	}
}
