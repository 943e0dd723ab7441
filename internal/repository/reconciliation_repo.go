package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/IgnaSubirachs/ContaCat/internal/models"
)

type ReconciliationRepository struct {
	db *gorm.DB
}

func NewReconciliationRepository(db *gorm.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

func (r *ReconciliationRepository) DB() *gorm.DB {
	return r.db
}

func (r *ReconciliationRepository) GetByMovement(movementID uuid.UUID) (*models.ReconciliationRecord, error) {
	var rec models.ReconciliationRecord
	if err := r.db.First(&rec, "movement_id = ?", movementID).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecordsByMovements returns the records for a statement's movements keyed by
// movement id, for rendering statement detail in one query.
func (r *ReconciliationRepository) RecordsByMovements(movementIDs []uuid.UUID) (map[uuid.UUID]models.ReconciliationRecord, error) {
	var recs []models.ReconciliationRecord
	if err := r.db.Where("movement_id IN ?", movementIDs).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.ReconciliationRecord, len(recs))
	for _, rec := range recs {
		out[rec.MovementID] = rec
	}
	return out, nil
}

// CountUnconfirmedByStatement counts a statement's movements whose record has
// not reached confirmed. Drives the statement status rollup.
func (r *ReconciliationRepository) CountUnconfirmedByStatement(tx *gorm.DB, statementID uuid.UUID) (int64, error) {
	var n int64
	err := tx.Model(&models.ReconciliationRecord{}).
		Joins("JOIN bank_movements ON bank_movements.id = reconciliation_records.movement_id").
		Where("bank_movements.statement_id = ? AND reconciliation_records.status <> ?",
			statementID, models.RecordConfirmed).
		Count(&n).Error
	return n, err
}
