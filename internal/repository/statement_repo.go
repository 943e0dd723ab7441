package repository

import (
	"github.com/IgnaSubirachs/ContaCat/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatementRepository struct {
	db *gorm.DB
}

func NewStatementRepository(db *gorm.DB) *StatementRepository {
	return &StatementRepository{db: db}
}

// Expose DB if needed
func (r *StatementRepository) DB() *gorm.DB {
	return r.db
}

func (r *StatementRepository) GetByID(id uuid.UUID) (*models.BankStatement, error) {
	var st models.BankStatement
	if err := r.db.First(&st, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &st, nil
}

// List returns statements newest first.
func (r *StatementRepository) List() ([]models.BankStatement, error) {
	var sts []models.BankStatement
	err := r.db.Order("created_at DESC").Find(&sts).Error
	return sts, err
}

// MovementsByStatement returns the statement's movements in file order.
func (r *StatementRepository) MovementsByStatement(statementID uuid.UUID) ([]models.BankMovement, error) {
	var mvs []models.BankMovement
	err := r.db.Where("statement_id = ?", statementID).Order("line_number ASC").Find(&mvs).Error
	return mvs, err
}

func (r *StatementRepository) GetMovement(id uuid.UUID) (*models.BankMovement, error) {
	var mv models.BankMovement
	if err := r.db.First(&mv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &mv, nil
}
