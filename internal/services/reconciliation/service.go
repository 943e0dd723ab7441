package reconciliation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/IgnaSubirachs/ContaCat/internal/models"
	"github.com/IgnaSubirachs/ContaCat/internal/norma43"
	"github.com/IgnaSubirachs/ContaCat/internal/repository"
	"github.com/IgnaSubirachs/ContaCat/internal/services/matching"
)

type Service struct {
	statementRepo *repository.StatementRepository
	entryRepo     *repository.LedgerEntryRepository
	reconRepo     *repository.ReconciliationRepository
	db            *gorm.DB
	accounting    AccountingGateway
	matchConfig   matching.Config
}

func NewService(
	statementRepo *repository.StatementRepository,
	entryRepo *repository.LedgerEntryRepository,
	reconRepo *repository.ReconciliationRepository,
	accounting AccountingGateway,
) *Service {
	if accounting == nil {
		accounting = LogGateway{}
	}
	return &Service{
		statementRepo: statementRepo,
		entryRepo:     entryRepo,
		reconRepo:     reconRepo,
		db:            statementRepo.DB(),
		accounting:    accounting,
		matchConfig:   matching.DefaultConfig(),
	}
}

func (s *Service) StatementRepo() *repository.StatementRepository { return s.statementRepo }
func (s *Service) EntryRepo() *repository.LedgerEntryRepository   { return s.entryRepo }
func (s *Service) DB() *gorm.DB                                   { return s.db }

// MatchConfig returns the service defaults used when a request carries no
// overrides.
func (s *Service) MatchConfig() matching.Config { return s.matchConfig }

// sourceRef identifies one file line across imports: same account, same
// statement period, same line number means the same movement.
func sourceRef(st *norma43.Statement, line int) string {
	return fmt.Sprintf("%s/%s-%s#%d",
		st.AccountID(),
		st.PeriodStart.Format("060102"),
		st.PeriodEnd.Format("060102"),
		line)
}

// ImportStatement parses a Norma 43 file and persists the statement, its
// movements and one unmatched reconciliation record per movement in a single
// transaction. A file whose line range is already imported fails with
// ErrDuplicateImport and writes nothing.
func (s *Service) ImportStatement(filename string, data []byte) (*models.BankStatement, error) {
	parsed, err := norma43.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	refs := make([]string, 0, len(parsed.Movements))
	for _, mv := range parsed.Movements {
		refs = append(refs, sourceRef(parsed, mv.Line))
	}

	statement := &models.BankStatement{
		ID:             uuid.New(),
		AccountID:      parsed.AccountID(),
		Filename:       filename,
		PeriodStart:    parsed.PeriodStart,
		PeriodEnd:      parsed.PeriodEnd,
		InitialBalance: parsed.InitialBalance,
		FinalBalance:   parsed.FinalBalance,
		MovementCount:  len(parsed.Movements),
		Status:         models.StatementPending,
		CreatedAt:      time.Now(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if len(refs) > 0 {
			if err := tx.Model(&models.BankMovement{}).
				Where("source_ref IN ?", refs).Count(&existing).Error; err != nil {
				return err
			}
		}
		if existing > 0 {
			return ErrDuplicateImport
		}

		if err := tx.Create(statement).Error; err != nil {
			return err
		}
		for _, mv := range parsed.Movements {
			movement := &models.BankMovement{
				ID:            uuid.New(),
				StatementID:   statement.ID,
				LineNumber:    mv.Line,
				SourceRef:     sourceRef(parsed, mv.Line),
				OperationDate: mv.OperationDate,
				ValueDate:     mv.ValueDate,
				Amount:        mv.Amount,
				Concept:       mv.Concept,
				Balance:       mv.Balance,
				DocumentNo:    mv.DocumentNo,
				Reference:     mv.Reference,
				CreatedAt:     time.Now(),
			}
			if err := tx.Create(movement).Error; err != nil {
				return err
			}
			if err := s.recordMovement(tx, movement.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("imported statement %s: account=%s movements=%d", statement.ID, statement.AccountID, statement.MovementCount)
	return statement, nil
}

// RecordMovement creates the unmatched reconciliation record for a movement.
func (s *Service) RecordMovement(movementID uuid.UUID) error {
	return s.recordMovement(s.db, movementID)
}

func (s *Service) recordMovement(tx *gorm.DB, movementID uuid.UUID) error {
	var existing int64
	if err := tx.Model(&models.ReconciliationRecord{}).
		Where("movement_id = ?", movementID).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return ErrDuplicateMovement
	}
	return tx.Create(&models.ReconciliationRecord{
		ID:         uuid.New(),
		MovementID: movementID,
		Status:     models.RecordUnmatched,
		CreatedAt:  time.Now(),
	}).Error
}

// SuggestForMovement runs the matching engine over the open-entries snapshot
// and stores the ranked list on the movement's record. A non-empty result
// transitions unmatched -> suggested; an empty one leaves the record as is.
// The ledger itself is never mutated here.
func (s *Service) SuggestForMovement(movementID uuid.UUID, cfg matching.Config) ([]matching.Suggestion, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	record, err := s.reconRepo.GetByMovement(movementID)
	if err != nil {
		return nil, err
	}
	if record.Status == models.RecordConfirmed {
		return nil, ErrAlreadyConfirmed
	}

	movement, err := s.statementRepo.GetMovement(movementID)
	if err != nil {
		return nil, err
	}
	entries, err := s.entryRepo.FindOpen()
	if err != nil {
		return nil, err
	}

	suggestions, err := matching.Suggest(*movement, entries, cfg)
	if err != nil {
		return nil, err
	}
	if len(suggestions) == 0 {
		return suggestions, nil
	}

	payload, err := json.Marshal(suggestions)
	if err != nil {
		return nil, err
	}
	err = s.db.Model(record).Updates(map[string]interface{}{
		"status":      models.RecordSuggested,
		"suggestions": payload,
	}).Error
	if err != nil {
		return nil, err
	}
	return suggestions, nil
}

// Confirm pairs a movement with a ledger entry. It re-validates the entry is
// still open with an atomic check-and-set on the settled flag, so of two
// concurrent confirmations targeting the same entry exactly one wins and the
// other fails with ErrStaleEntry. On success the record is confirmed, the
// statement status rolled up, an audit row written, and the settlement signal
// handed to the accounting gateway.
func (s *Service) Confirm(movementID, entryID uuid.UUID, user string) (*models.ReconciliationRecord, error) {
	var (
		record   models.ReconciliationRecord
		movement models.BankMovement
		now      = time.Now()
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&record, "movement_id = ?", movementID).Error; err != nil {
			return err
		}
		if record.Status == models.RecordConfirmed {
			return ErrAlreadyConfirmed
		}

		if err := tx.First(&movement, "id = ?", movementID).Error; err != nil {
			return err
		}

		var entry models.LedgerEntry
		if err := tx.First(&entry, "id = ?", entryID).Error; err != nil {
			return err
		}
		if entry.Status != models.EntryOpen {
			return ErrStaleEntry
		}
		if entry.Amount.Sub(movement.Amount).Abs().GreaterThan(s.matchConfig.AmountTolerance) {
			return &AmountMismatchError{
				MovementAmount: movement.Amount,
				EntryAmount:    entry.Amount,
				Tolerance:      s.matchConfig.AmountTolerance,
			}
		}

		affected, err := s.entryRepo.Settle(tx, entryID, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrStaleEntry
		}

		if err := tx.Model(&record).Updates(map[string]interface{}{
			"ledger_entry_id": entryID,
			"status":          models.RecordConfirmed,
			"confirmed_at":    now,
			"confirmed_by":    user,
		}).Error; err != nil {
			return err
		}

		if err := tx.Create(&models.ReconciliationAuditLog{
			ID:          uuid.New(),
			RecordID:    record.ID,
			Action:      "confirm",
			NewEntry:    &entryID,
			PerformedBy: user,
			CreatedAt:   now,
		}).Error; err != nil {
			return err
		}

		return s.rollupStatement(tx, movement.StatementID)
	})
	if err != nil {
		return nil, err
	}

	s.accounting.EntrySettled(entryID, now, movement.Amount)

	// Re-read so the caller sees the confirmed state.
	return s.reconRepo.GetByMovement(movementID)
}

// Correct supersedes a confirmed pairing in place: the previously settled
// entry is reopened, the chosen entry settled under the same check-and-set
// guard as Confirm, and the supersession kept in the audit log with the old
// and new entry plus the reason. The record never leaves confirmed and is
// never deleted.
func (s *Service) Correct(movementID, entryID uuid.UUID, user, reason string) (*models.ReconciliationRecord, error) {
	var (
		record   models.ReconciliationRecord
		movement models.BankMovement
		previous *uuid.UUID
		now      = time.Now()
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&record, "movement_id = ?", movementID).Error; err != nil {
			return err
		}
		if record.Status != models.RecordConfirmed {
			return ErrNotConfirmed
		}
		previous = record.LedgerEntryID

		if err := tx.First(&movement, "id = ?", movementID).Error; err != nil {
			return err
		}

		var entry models.LedgerEntry
		if err := tx.First(&entry, "id = ?", entryID).Error; err != nil {
			return err
		}
		if entry.Status != models.EntryOpen {
			return ErrStaleEntry
		}
		if entry.Amount.Sub(movement.Amount).Abs().GreaterThan(s.matchConfig.AmountTolerance) {
			return &AmountMismatchError{
				MovementAmount: movement.Amount,
				EntryAmount:    entry.Amount,
				Tolerance:      s.matchConfig.AmountTolerance,
			}
		}

		affected, err := s.entryRepo.Settle(tx, entryID, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrStaleEntry
		}

		if previous != nil {
			if err := tx.Model(&models.LedgerEntry{}).
				Where("id = ? AND status = ?", *previous, models.EntrySettled).
				Updates(map[string]interface{}{
					"status":     models.EntryOpen,
					"settled_at": nil,
				}).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&record).Updates(map[string]interface{}{
			"ledger_entry_id": entryID,
			"confirmed_at":    now,
			"confirmed_by":    user,
		}).Error; err != nil {
			return err
		}

		return tx.Create(&models.ReconciliationAuditLog{
			ID:            uuid.New(),
			RecordID:      record.ID,
			Action:        "correct",
			PreviousEntry: previous,
			NewEntry:      &entryID,
			PerformedBy:   user,
			Reason:        reason,
			CreatedAt:     now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if previous != nil {
		s.accounting.EntryReopened(*previous, now)
	}
	s.accounting.EntrySettled(entryID, now, movement.Amount)

	return s.reconRepo.GetByMovement(movementID)
}

// rollupStatement recomputes the statement status from its records:
// reconciled when every movement is confirmed, partial when at least one is.
func (s *Service) rollupStatement(tx *gorm.DB, statementID uuid.UUID) error {
	unconfirmed, err := s.reconRepo.CountUnconfirmedByStatement(tx, statementID)
	if err != nil {
		return err
	}
	status := models.StatementPartial
	if unconfirmed == 0 {
		status = models.StatementReconciled
	}
	return tx.Model(&models.BankStatement{}).
		Where("id = ?", statementID).
		Update("status", status).Error
}

// StatementDetail is a statement with its movements and their record status.
type StatementDetail struct {
	Statement models.BankStatement  `json:"statement"`
	Lines     []StatementDetailLine `json:"lines"`
}

type StatementDetailLine struct {
	Movement models.BankMovement          `json:"movement"`
	Record   *models.ReconciliationRecord `json:"record"`
}

// GetStatementDetail loads a statement with per-movement reconciliation state
// for display.
func (s *Service) GetStatementDetail(statementID uuid.UUID) (*StatementDetail, error) {
	statement, err := s.statementRepo.GetByID(statementID)
	if err != nil {
		return nil, err
	}
	movements, err := s.statementRepo.MovementsByStatement(statementID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(movements))
	for i, mv := range movements {
		ids[i] = mv.ID
	}
	records, err := s.reconRepo.RecordsByMovements(ids)
	if err != nil {
		return nil, err
	}

	detail := &StatementDetail{Statement: *statement}
	for _, mv := range movements {
		line := StatementDetailLine{Movement: mv}
		if rec, ok := records[mv.ID]; ok {
			line.Record = &rec
		}
		detail.Lines = append(detail.Lines, line)
	}
	return detail, nil
}

// IsNotFound reports whether err is the underlying store's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
