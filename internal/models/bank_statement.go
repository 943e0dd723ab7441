package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Statement status rollup.
const (
	StatementPending    = "pending"
	StatementPartial    = "partial"
	StatementReconciled = "reconciled"
)

type BankStatement struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID      string          `gorm:"index" json:"account_id"`
	Filename       string          `json:"filename"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	InitialBalance decimal.Decimal `gorm:"type:numeric(14,2)" json:"initial_balance"`
	FinalBalance   decimal.Decimal `gorm:"type:numeric(14,2)" json:"final_balance"`
	MovementCount  int             `json:"movement_count"`
	Status         string          `gorm:"index" json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}
