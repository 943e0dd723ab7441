package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/IgnaSubirachs/ContaCat/internal/models"
	"github.com/IgnaSubirachs/ContaCat/internal/norma43"
	"github.com/IgnaSubirachs/ContaCat/internal/services/matching"
	service "github.com/IgnaSubirachs/ContaCat/internal/services/reconciliation"
)

type BankingHandler struct {
	service *service.Service
}

func NewBankingHandler(s *service.Service) *BankingHandler {
	return &BankingHandler{service: s}
}

// UploadStatement imports a Norma 43 file. The whole file is rejected on the
// first undecodable line or if its line range was already imported.
func (h *BankingHandler) UploadStatement(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}

	log.Println("Received statement file:", header.Filename, "size:", header.Size)

	statement, err := h.service.ImportStatement(header.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"statement": statement,
		"movements": statement.MovementCount,
	})
}

func (h *BankingHandler) ListStatements(c *gin.Context) {
	statements, err := h.service.StatementRepo().List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"statements": statements})
}

func (h *BankingHandler) GetStatement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid statement ID"})
		return
	}

	detail, err := h.service.GetStatementDetail(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// SuggestMovement computes ranked match suggestions for one movement. The
// request body may override the default matching parameters.
func (h *BankingHandler) SuggestMovement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movement ID"})
		return
	}

	cfg := h.service.MatchConfig()
	var payload struct {
		AmountTolerance      *string  `json:"amount_tolerance"`
		DateWindowDays       *int     `json:"date_window_days"`
		TextSimilarityWeight *float64 `json:"text_similarity_weight"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		if payload.AmountTolerance != nil {
			tol, err := decimal.NewFromString(*payload.AmountTolerance)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount tolerance"})
				return
			}
			cfg.AmountTolerance = tol
		}
		if payload.DateWindowDays != nil {
			cfg.DateWindowDays = *payload.DateWindowDays
		}
		if payload.TextSimilarityWeight != nil {
			cfg.TextSimilarityWeight = *payload.TextSimilarityWeight
		}
	}

	suggestions, err := h.service.SuggestForMovement(id, cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// ConfirmMovement pairs a movement with a ledger entry and triggers the
// settlement signal. Conflicts (already confirmed, entry settled concurrently,
// amount mismatch) come back as 409 so the UI can refresh and retry.
func (h *BankingHandler) ConfirmMovement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movement ID"})
		return
	}

	var payload struct {
		LedgerEntryID string `json:"ledger_entry_id"`
		User          string `json:"user"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	entryID, err := uuid.Parse(payload.LedgerEntryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ledger entry ID"})
		return
	}

	record, err := h.service.Confirm(id, entryID, payload.User)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "movement confirmed", "record": record})
}

// CorrectMovement supersedes a confirmed pairing with a different ledger
// entry: the old entry is reopened, the new one settled, and the change kept
// in the audit trail.
func (h *BankingHandler) CorrectMovement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movement ID"})
		return
	}

	var payload struct {
		LedgerEntryID string `json:"ledger_entry_id"`
		User          string `json:"user"`
		Reason        string `json:"reason"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	entryID, err := uuid.Parse(payload.LedgerEntryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ledger entry ID"})
		return
	}

	record, err := h.service.Correct(id, entryID, payload.User, payload.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "movement corrected", "record": record})
}

func (h *BankingHandler) ListLedgerEntries(c *gin.Context) {
	entries, err := h.service.EntryRepo().FindOpen()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// CreateLedgerEntry registers an expected cash movement on behalf of the
// accounting subsystem.
func (h *BankingHandler) CreateLedgerEntry(c *gin.Context) {
	var payload struct {
		EntryNumber string `json:"entry_number"`
		PartnerName string `json:"partner_name"`
		Amount      string `json:"amount"`
		DueDate     string `json:"due_date"` // "yyyy-mm-dd"
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	dueDate, err := time.Parse("2006-01-02", payload.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due date format, expected yyyy-mm-dd"})
		return
	}
	if payload.PartnerName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "partner name required"})
		return
	}

	entryNumber := payload.EntryNumber
	if entryNumber == "" {
		entryNumber = uuid.New().String()
	}

	entry := &models.LedgerEntry{
		EntryNumber: entryNumber,
		PartnerName: payload.PartnerName,
		Amount:      amount,
		DueDate:     dueDate,
	}
	if err := h.service.EntryRepo().Create(entry); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// respondError maps the service error taxonomy onto HTTP statuses: parse and
// configuration problems are 400, conflicts 409, missing rows 404.
func respondError(c *gin.Context, err error) {
	var (
		parseErr    *norma43.ParseError
		cfgErr      *matching.ConfigurationError
		mismatchErr *service.AmountMismatchError
	)
	switch {
	case errors.As(err, &parseErr),
		errors.As(err, &cfgErr),
		errors.Is(err, norma43.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateImport),
		errors.Is(err, service.ErrDuplicateMovement),
		errors.Is(err, service.ErrAlreadyConfirmed),
		errors.Is(err, service.ErrNotConfirmed),
		errors.Is(err, service.ErrStaleEntry),
		errors.As(err, &mismatchErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case service.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
