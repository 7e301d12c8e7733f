package handlers

import (
	"log"

	"grammarbuddy/internal/middleware"
	"grammarbuddy/internal/services"

	"github.com/gofiber/fiber/v2"
)

// MigrateHandler runs the one-time copy of the shared legacy history into
// the legacy account's own namespace. The client fires it once per session
// load; redundant calls are harmless no-ops.
type MigrateHandler struct {
	history *services.HistoryService
}

// NewMigrateHandler creates a new migrate handler
func NewMigrateHandler(history *services.HistoryService) *MigrateHandler {
	return &MigrateHandler{history: history}
}

// Run triggers the migration for the requesting identity.
// POST /api/migrate
func (h *MigrateHandler) Run(c *fiber.Ctx) error {
	identity, _ := middleware.CurrentIdentity(c)

	result, err := h.history.MigrateLegacy(c.Context(), identity)
	if err != nil {
		log.Printf("❌ [MIGRATE] Migration failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Migration failed",
		})
	}
	return c.JSON(result)
}
