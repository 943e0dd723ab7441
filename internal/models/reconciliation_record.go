package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Reconciliation record states. unmatched -> suggested -> confirmed; confirm
// may skip suggested; nothing leaves confirmed.
const (
	RecordUnmatched = "unmatched"
	RecordSuggested = "suggested"
	RecordConfirmed = "confirmed"
)

type ReconciliationRecord struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MovementID    uuid.UUID      `gorm:"uniqueIndex" json:"movement_id"`
	LedgerEntryID *uuid.UUID     `json:"ledger_entry_id"`
	Status        string         `gorm:"index" json:"status"`
	Suggestions   datatypes.JSON `json:"suggestions"`
	ConfirmedAt   *time.Time     `json:"confirmed_at"`
	ConfirmedBy   string         `json:"confirmed_by"`
	CreatedAt     time.Time      `json:"created_at"`
}
