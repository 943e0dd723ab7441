package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankMovement is one parsed statement line. Rows are immutable after import;
// SourceRef identifies the originating file line and carries a unique index so
// re-importing the same range fails instead of duplicating movements.
type BankMovement struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	StatementID   uuid.UUID       `gorm:"index" json:"statement_id"`
	LineNumber    int             `json:"line_number"`
	SourceRef     string          `gorm:"uniqueIndex" json:"source_ref"`
	OperationDate time.Time       `gorm:"column:operation_date" json:"operation_date"`
	ValueDate     time.Time       `json:"value_date"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);index" json:"amount"`
	Concept       string          `json:"concept"`
	Balance       decimal.Decimal `gorm:"type:numeric(14,2)" json:"balance"`
	DocumentNo    string          `json:"document_no"`
	Reference     string          `json:"reference"`
	CreatedAt     time.Time       `json:"created_at"`
}
