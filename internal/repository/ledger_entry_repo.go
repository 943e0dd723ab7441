package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/IgnaSubirachs/ContaCat/internal/models"
)

// LedgerEntryRepository reads the accounting subsystem's entries. The only
// write this service performs is the settle check-and-set on confirmation.
type LedgerEntryRepository struct {
	db *gorm.DB
}

func NewLedgerEntryRepository(db *gorm.DB) *LedgerEntryRepository {
	return &LedgerEntryRepository{db: db}
}

func (r *LedgerEntryRepository) DB() *gorm.DB {
	return r.db
}

func (r *LedgerEntryRepository) GetByID(id uuid.UUID) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	if err := r.db.First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// FindOpen returns the open-entries snapshot the matching engine runs over.
func (r *LedgerEntryRepository) FindOpen() ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.Where("status = ?", models.EntryOpen).Order("due_date ASC").Find(&entries).Error
	return entries, err
}

// Settle flips open -> settled atomically. Returns the number of rows
// changed: zero means the entry was already settled by a concurrent
// confirmation (or never open).
func (r *LedgerEntryRepository) Settle(tx *gorm.DB, id uuid.UUID, settledAt time.Time) (int64, error) {
	res := tx.Model(&models.LedgerEntry{}).
		Where("id = ? AND status = ?", id, models.EntryOpen).
		Updates(map[string]interface{}{
			"status":     models.EntrySettled,
			"settled_at": settledAt,
		})
	return res.RowsAffected, res.Error
}

// Create registers an expected cash movement from the accounting subsystem.
func (r *LedgerEntryRepository) Create(e *models.LedgerEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = models.EntryOpen
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return r.db.Create(e).Error
}
