package handlers

import (
	"bytes"
	"encoding/json"
	"log"

	"grammarbuddy/internal/middleware"
	"grammarbuddy/internal/models"
	"grammarbuddy/internal/services"
	"grammarbuddy/pkg/auth"

	"github.com/gofiber/fiber/v2"
)

// HistoryHandler exposes the saved-phrase list. Reads degrade to an empty
// list on any failure; writes require a real (non-guest) identity and
// report store failures honestly.
type HistoryHandler struct {
	history *services.HistoryService
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history *services.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// realIdentity resolves the identity, excluding guests and anonymous
// requests. Reads treat "not real" as an empty list; writes reject it.
func realIdentity(c *fiber.Ctx) (string, bool) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok || identity == auth.GuestUser {
		return "", false
	}
	return identity, true
}

// Get returns the user's saved phrases. Always 200: guests and anonymous
// visitors get an empty list, and so does anyone whose history cannot be
// loaded.
// GET /api/history
func (h *HistoryHandler) Get(c *fiber.Ctx) error {
	identity, ok := realIdentity(c)
	if !ok {
		return c.JSON(fiber.Map{"history": []models.HistoryEntry{}})
	}

	return c.JSON(fiber.Map{"history": h.history.Get(c.Context(), identity)})
}

// Replace overwrites the user's whole list with the payload, truncated to
// the cap. Ordering and dedup are the caller's responsibility.
// POST /api/history
func (h *HistoryHandler) Replace(c *fiber.Ctx) error {
	identity, ok := realIdentity(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Sign in to save history",
		})
	}

	// Parse by hand so "history is not an array" is distinguishable from
	// a syntactically broken body: both are 400, but entries typed as
	// anything but a list must not be silently coerced.
	var body struct {
		History json.RawMessage `json:"history"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil || len(body.History) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid history format",
		})
	}
	raw := bytes.TrimSpace(body.History)
	var entries []models.HistoryEntry
	if len(raw) == 0 || raw[0] != '[' || json.Unmarshal(raw, &entries) != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid history format",
		})
	}

	if err := h.history.Replace(c.Context(), identity, entries); err != nil {
		log.Printf("❌ [HISTORY] Save failed for %s: %v", identity, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save history",
		})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Clear resets the user's list to empty.
// DELETE /api/history
func (h *HistoryHandler) Clear(c *fiber.Ctx) error {
	identity, ok := realIdentity(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Sign in to save history",
		})
	}

	if err := h.history.Clear(c.Context(), identity); err != nil {
		log.Printf("❌ [HISTORY] Clear failed for %s: %v", identity, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear history",
		})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Bookmark saves one phrase session server side: load, upsert by Dutch
// text, write back. Same last-writer-wins model as Replace.
// POST /api/history/bookmark
func (h *HistoryHandler) Bookmark(c *fiber.Ctx) error {
	identity, ok := realIdentity(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Sign in to save history",
		})
	}

	var body struct {
		Entry *models.HistoryEntry `json:"entry"`
	}
	if err := c.BodyParser(&body); err != nil || body.Entry == nil || body.Entry.Dutch == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid entry format",
		})
	}

	updated, err := h.history.Bookmark(c.Context(), identity, *body.Entry)
	if err != nil {
		log.Printf("❌ [HISTORY] Bookmark failed for %s: %v", identity, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save history",
		})
	}
	return c.JSON(fiber.Map{"ok": true, "history": updated})
}
