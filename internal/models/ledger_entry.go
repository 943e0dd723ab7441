package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger entry settlement status. Entries are owned by the accounting
// subsystem; this service only reads open entries and flips open -> settled
// on a confirmed reconciliation.
const (
	EntryOpen    = "open"
	EntrySettled = "settled"
)

type LedgerEntry struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	EntryNumber string          `gorm:"uniqueIndex" json:"entry_number"`
	PartnerName string          `gorm:"index" json:"partner_name"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);index" json:"amount"`
	DueDate     time.Time       `json:"due_date"`
	Status      string          `gorm:"index" json:"status"`
	SettledAt   *time.Time      `json:"settled_at"`
	CreatedAt   time.Time       `json:"created_at"`
}
