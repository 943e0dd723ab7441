package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/IgnaSubirachs/ContaCat/internal/models"
	"github.com/IgnaSubirachs/ContaCat/internal/routes"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.BankStatement{},
		&models.BankMovement{},
		&models.LedgerEntry{},
		&models.ReconciliationRecord{},
		&models.ReconciliationAuditLog{},
	))

	r := gin.New()
	routes.RegisterRoutes(r, db)
	return r
}

func statementFile() string {
	header := "11" + "0049" + "1500" + "0123456789" + "250301" + "250331" + "2" +
		"00000000100000" + "978" + "2" + pad(26, "FUSTERIA PUIG SL") + "   "
	mv := "22" + "    " + "1500" + "250310" + "250310" + "02" + "012" + "2" +
		"00000000012100" + "0000000000" + pad(12, "") + pad(16, "FUSTERIA PUIG")
	return header + "\n" + mv + "\n"
}

func pad(n int, s string) string { return s + strings.Repeat(" ", n-len(s)) }

func uploadStatement(t *testing.T, r *gin.Engine, contents string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "marzo.n43")
	require.NoError(t, err)
	_, err = part.Write([]byte(contents))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/statements/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func getJSON(t *testing.T, r *gin.Engine, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestUploadListAndDetail(t *testing.T) {
	r := newTestRouter(t)

	rec := uploadStatement(t, r, statementFile())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var listResp struct {
		Statements []models.BankStatement `json:"statements"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, r, "/api/statements", &listResp))
	require.Len(t, listResp.Statements, 1)
	st := listResp.Statements[0]
	assert.Equal(t, "004915000123456789", st.AccountID)
	assert.Equal(t, 1, st.MovementCount)
	assert.Equal(t, models.StatementPending, st.Status)

	var detail struct {
		Lines []struct {
			Movement models.BankMovement          `json:"movement"`
			Record   *models.ReconciliationRecord `json:"record"`
		} `json:"lines"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, r, "/api/statements/"+st.ID.String(), &detail))
	require.Len(t, detail.Lines, 1)
	require.NotNil(t, detail.Lines[0].Record)
	assert.Equal(t, models.RecordUnmatched, detail.Lines[0].Record.Status)
}

func TestUploadDuplicateConflict(t *testing.T) {
	r := newTestRouter(t)

	require.Equal(t, http.StatusCreated, uploadStatement(t, r, statementFile()).Code)
	rec := uploadStatement(t, r, statementFile())
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestUploadBadFormat(t *testing.T) {
	r := newTestRouter(t)

	rec := uploadStatement(t, r, "Date,Concept,Amount\n2025-03-10,x,1.00\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestSuggestAndConfirmFlow(t *testing.T) {
	r := newTestRouter(t)

	require.Equal(t, http.StatusCreated, uploadStatement(t, r, statementFile()).Code)

	rec := postJSON(r, "/api/ledger-entries", map[string]any{
		"entry_number": "FA-2025-031",
		"partner_name": "FUSTERIA PUIG SL",
		"amount":       "121.00",
		"due_date":     "2025-03-08",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Entry models.LedgerEntry `json:"entry"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	movementID := firstMovementID(t, r)

	rec = postJSON(r, fmt.Sprintf("/api/movements/%s/suggest", movementID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var suggestResp struct {
		Suggestions []struct {
			EntryID string  `json:"entry_id"`
			Score   float64 `json:"score"`
		} `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &suggestResp))
	require.Len(t, suggestResp.Suggestions, 1)
	assert.Equal(t, created.Entry.ID.String(), suggestResp.Suggestions[0].EntryID)
	assert.Greater(t, suggestResp.Suggestions[0].Score, 0.5)

	rec = postJSON(r, fmt.Sprintf("/api/movements/%s/confirm", movementID), map[string]any{
		"ledger_entry_id": created.Entry.ID.String(),
		"user":            "ignasi",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Second confirm is a conflict.
	rec = postJSON(r, fmt.Sprintf("/api/movements/%s/confirm", movementID), map[string]any{
		"ledger_entry_id": created.Entry.ID.String(),
		"user":            "ignasi",
	})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	// The entry left the open list.
	var entriesResp struct {
		Entries []models.LedgerEntry `json:"entries"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, r, "/api/ledger-entries", &entriesResp))
	assert.Empty(t, entriesResp.Entries)
}

func TestCorrectFlow(t *testing.T) {
	r := newTestRouter(t)
	require.Equal(t, http.StatusCreated, uploadStatement(t, r, statementFile()).Code)

	newEntry := func(number string) models.LedgerEntry {
		rec := postJSON(r, "/api/ledger-entries", map[string]any{
			"entry_number": number,
			"partner_name": "FUSTERIA PUIG SL",
			"amount":       "121.00",
			"due_date":     "2025-03-08",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created struct {
			Entry models.LedgerEntry `json:"entry"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		return created.Entry
	}
	wrong := newEntry("FA-2025-031")
	right := newEntry("FA-2025-032")
	movementID := firstMovementID(t, r)

	// Correcting before any confirmation is a conflict.
	rec := postJSON(r, fmt.Sprintf("/api/movements/%s/correct", movementID), map[string]any{
		"ledger_entry_id": right.ID.String(),
		"user":            "ignasi",
		"reason":          "typo",
	})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = postJSON(r, fmt.Sprintf("/api/movements/%s/confirm", movementID), map[string]any{
		"ledger_entry_id": wrong.ID.String(),
		"user":            "ignasi",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = postJSON(r, fmt.Sprintf("/api/movements/%s/correct", movementID), map[string]any{
		"ledger_entry_id": right.ID.String(),
		"user":            "ignasi",
		"reason":          "paired with the wrong invoice",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var corrected struct {
		Record models.ReconciliationRecord `json:"record"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &corrected))
	require.NotNil(t, corrected.Record.LedgerEntryID)
	assert.Equal(t, right.ID, *corrected.Record.LedgerEntryID)

	// The wrongly settled entry is open again.
	var entriesResp struct {
		Entries []models.LedgerEntry `json:"entries"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, r, "/api/ledger-entries", &entriesResp))
	require.Len(t, entriesResp.Entries, 1)
	assert.Equal(t, wrong.ID, entriesResp.Entries[0].ID)
}

func TestSuggestInvalidConfig(t *testing.T) {
	r := newTestRouter(t)
	require.Equal(t, http.StatusCreated, uploadStatement(t, r, statementFile()).Code)

	movementID := firstMovementID(t, r)
	rec := postJSON(r, fmt.Sprintf("/api/movements/%s/suggest", movementID), map[string]any{
		"date_window_days": -3,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestSuggestUnknownMovement(t *testing.T) {
	r := newTestRouter(t)

	rec := postJSON(r, "/api/movements/2f9b9f3e-0000-0000-0000-000000000000/suggest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = postJSON(r, "/api/movements/not-a-uuid/suggest", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func firstMovementID(t *testing.T, r *gin.Engine) string {
	t.Helper()
	var listResp struct {
		Statements []models.BankStatement `json:"statements"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, r, "/api/statements", &listResp))
	require.NotEmpty(t, listResp.Statements)

	var detail struct {
		Lines []struct {
			Movement models.BankMovement `json:"movement"`
		} `json:"lines"`
	}
	require.Equal(t, http.StatusOK,
		getJSON(t, r, "/api/statements/"+listResp.Statements[0].ID.String(), &detail))
	require.NotEmpty(t, detail.Lines)
	return detail.Lines[0].Movement.ID.String()
}
