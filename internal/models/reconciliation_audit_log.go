package models

import (
	"time"

	"github.com/google/uuid"
)

type ReconciliationAuditLog struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	RecordID      uuid.UUID `gorm:"index"`
	Action        string
	PreviousEntry *uuid.UUID
	NewEntry      *uuid.UUID
	PerformedBy   string
	Reason        string
	CreatedAt     time.Time
}
