package reconciliation

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountingGateway receives the settlement signal after a confirmed
// reconciliation. The accounting subsystem owns applying it to its journal;
// this service only reports what was matched.
type AccountingGateway interface {
	EntrySettled(entryID uuid.UUID, settlementDate time.Time, matchedAmount decimal.Decimal)
	EntryReopened(entryID uuid.UUID, reopenedDate time.Time)
}

// LogGateway is the default gateway when no accounting integration is wired.
type LogGateway struct{}

func (LogGateway) EntrySettled(entryID uuid.UUID, settlementDate time.Time, matchedAmount decimal.Decimal) {
	log.Printf("settlement signal: entry=%s date=%s amount=%s",
		entryID, settlementDate.Format("2006-01-02"), matchedAmount)
}

func (LogGateway) EntryReopened(entryID uuid.UUID, reopenedDate time.Time) {
	log.Printf("reopen signal: entry=%s date=%s", entryID, reopenedDate.Format("2006-01-02"))
}
