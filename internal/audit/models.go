// Package audit implements the append-only ledger of administrative
// mutations. A record is written only inside the same transaction as the
// mutation it documents; if that transaction rolls back, no record exists.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	id "geoasistencia/pkg/domain"
)

// Action is the kind of administrative mutation being documented.
type Action string

const (
	ActionCreate       Action = "CREATE"
	ActionUpdate       Action = "UPDATE"
	ActionDelete       Action = "DELETE"
	ActionStatusChange Action = "STATUS_CHANGE"
	ActionRoleChange   Action = "ROLE_CHANGE"
)

// Table names the entity a mutation touched. Values match the relational
// table names.
type Table string

const (
	TablePerfil     Table = "perfil"
	TableSede       Table = "sede"
	TableGeocerca   Table = "geocerca"
	TableAsignacion Table = "asignacion_laboral"
)

// Record is one immutable ledger entry.
type Record struct {
	ID        id.AuditID
	ActorID   id.ProfileID
	Table     Table
	Action    Action
	Detail    json.RawMessage
	CreatedAt time.Time
}

// RecordWithActor is the read projection, joined with the acting profile's
// employee code.
type RecordWithActor struct {
	Record
	ActorEmployeeCode string
}

// Detail payload shapes depend on the action: a snapshot for CREATE and
// DELETE, a before/after pair for UPDATE, STATUS_CHANGE and ROLE_CHANGE.

// CreatedDetail captures the snapshot of a newly created entity.
func CreatedDetail(snapshot any) (json.RawMessage, error) {
	return marshalDetail(map[string]any{"creado": snapshot})
}

// DeletedDetail captures the snapshot of an eliminated entity.
func DeletedDetail(snapshot any) (json.RawMessage, error) {
	return marshalDetail(map[string]any{"eliminado": snapshot})
}

// ChangeDetail captures a before/after pair.
func ChangeDetail(before, after any) (json.RawMessage, error) {
	return marshalDetail(map[string]any{"antes": before, "despues": after})
}

func marshalDetail(payload map[string]any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal audit detail: %w", err)
	}
	return raw, nil
}
