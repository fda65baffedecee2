package authz

import (
	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/shared"
)

// AuditEntry attributes a change to the principal.
func AuditEntry(p Principal, action, table string, recordID uuid.UUID, oldValues, newValues any) shared.AuditLog {
	actor := p.UserID
	log := shared.AuditLog{
		UserID:    &actor,
		ParishID:  p.ParishID,
		Action:    action,
		Table:     table,
		OldValues: oldValues,
		NewValues: newValues,
	}
	if recordID != uuid.Nil {
		id := recordID
		log.RecordID = &id
	}
	return log
}
