package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	handler "github.com/IgnaSubirachs/ContaCat/internal/handlers"
	"github.com/IgnaSubirachs/ContaCat/internal/repository"
	service "github.com/IgnaSubirachs/ContaCat/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB) {
	statementRepo := repository.NewStatementRepository(db)
	entryRepo := repository.NewLedgerEntryRepository(db)
	reconRepo := repository.NewReconciliationRepository(db)

	reconService := service.NewService(statementRepo, entryRepo, reconRepo, nil)

	bankingHandler := handler.NewBankingHandler(reconService)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Statement routes
	statements := api.Group("/statements")
	statements.POST("/upload", bankingHandler.UploadStatement)
	statements.GET("", bankingHandler.ListStatements)
	statements.GET("/:id", bankingHandler.GetStatement)

	// Movement-level routes
	movements := api.Group("/movements")
	movements.POST("/:id/suggest", bankingHandler.SuggestMovement)
	movements.POST("/:id/confirm", bankingHandler.ConfirmMovement)
	movements.POST("/:id/correct", bankingHandler.CorrectMovement)

	// Ledger entry routes
	entries := api.Group("/ledger-entries")
	{
		entries.GET("", bankingHandler.ListLedgerEntries)
		entries.POST("", bankingHandler.CreateLedgerEntry)
	}
}
