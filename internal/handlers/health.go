package handlers

import (
	"time"

	"grammarbuddy/internal/kvstore"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	store kvstore.Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store kvstore.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	storeStatus := "ok"
	if err := h.store.Ping(c.Context()); err != nil {
		storeStatus = "unavailable"
	}

	return c.JSON(fiber.Map{
		"status":    "healthy",
		"store":     h.store.Name(),
		"storeOk":   storeStatus == "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
