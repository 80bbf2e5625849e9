// handlers/handlers.go - Shared handler wiring
package handlers

import (
	"quizhub/realtime"
	"quizhub/services"

	"gorm.io/gorm"
)

var (
	contentSvc *services.ContentService
	sessionSvc *services.SessionService
	ledgerSvc  *services.LedgerService
	gameHub    *realtime.Hub
)

// Init wires the handler package to its services. Called once from main.
func Init(db *gorm.DB) {
	contentSvc = services.NewContentService(db)
	sessionSvc = services.NewSessionService(db, contentSvc)
	ledgerSvc = services.NewLedgerService(db, contentSvc)
	gameHub = realtime.NewHub()
}
