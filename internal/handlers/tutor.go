package handlers

import (
	"context"
	"errors"
	"log"
	"strings"

	"grammarbuddy/internal/models"
	"grammarbuddy/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Tutor is the surface of the language-model service the handlers need.
type Tutor interface {
	Translate(ctx context.Context, phrase string) (string, error)
	Breakdown(ctx context.Context, phrase, translation string) ([]models.BreakdownToken, error)
	Chat(ctx context.Context, phrase, translation string, messages []models.ChatMessage) (string, error)
	ParseScreenshot(ctx context.Context, imageB64, mediaType string) ([]string, error)
}

// TutorHandler fronts the language-model operations. Each endpoint is a
// thin proxy: validate the body, call the service, reshape the result.
type TutorHandler struct {
	tutor Tutor
}

// NewTutorHandler creates a new tutor handler
func NewTutorHandler(tutor Tutor) *TutorHandler {
	return &TutorHandler{tutor: tutor}
}

// upstreamFailure renders an upstream error with its original status and a
// human message, so the UI can show it in place of the result.
func upstreamFailure(c *fiber.Ctx, err error, fallback string) error {
	var upstream *services.UpstreamError
	if errors.As(err, &upstream) {
		return c.Status(upstream.Status).JSON(fiber.Map{"error": upstream.Message})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
}

// Translate translates a Dutch phrase to English.
// POST /api/translate
func (h *TutorHandler) Translate(c *fiber.Ctx) error {
	var req struct {
		Phrase string `json:"phrase"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Phrase) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No phrase provided",
		})
	}

	translation, err := h.tutor.Translate(c.Context(), req.Phrase)
	if err != nil {
		log.Printf("❌ [TUTOR] Translation error: %v", err)
		return upstreamFailure(c, err, "Translation failed. Please try again.")
	}
	return c.JSON(fiber.Map{"translation": translation})
}

// Breakdown returns a word-by-word grammatical breakdown.
// POST /api/breakdown
func (h *TutorHandler) Breakdown(c *fiber.Ctx) error {
	var req struct {
		Phrase      string `json:"phrase"`
		Translation string `json:"translation"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Phrase) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No phrase provided",
		})
	}

	breakdown, err := h.tutor.Breakdown(c.Context(), req.Phrase, req.Translation)
	if err != nil {
		log.Printf("❌ [TUTOR] Breakdown error: %v", err)
		return upstreamFailure(c, err, "Failed to parse breakdown")
	}
	return c.JSON(fiber.Map{"breakdown": breakdown})
}

// Chat returns the grammar tutor's next reply.
// POST /api/chat
func (h *TutorHandler) Chat(c *fiber.Ctx) error {
	var req struct {
		DutchPhrase string               `json:"dutchPhrase"`
		Translation string               `json:"translation"`
		Messages    []models.ChatMessage `json:"messages"`
	}
	if err := c.BodyParser(&req); err != nil ||
		strings.TrimSpace(req.DutchPhrase) == "" || len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing required fields",
		})
	}

	response, err := h.tutor.Chat(c.Context(), req.DutchPhrase, req.Translation, req.Messages)
	if err != nil {
		log.Printf("❌ [TUTOR] Chat error: %v", err)
		return upstreamFailure(c, err, "Chat failed. Please try again.")
	}
	return c.JSON(fiber.Map{"response": response})
}

// ParseScreenshot extracts Dutch phrases from an uploaded screenshot.
// POST /api/parse-screenshot
func (h *TutorHandler) ParseScreenshot(c *fiber.Ctx) error {
	var req struct {
		Image     string `json:"image"`
		MediaType string `json:"mediaType"`
	}
	if err := c.BodyParser(&req); err != nil || req.Image == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No image provided",
		})
	}

	phrases, err := h.tutor.ParseScreenshot(c.Context(), req.Image, req.MediaType)
	if err != nil {
		if errors.Is(err, services.ErrNoDutchFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Couldn't find any Dutch text in this screenshot. Try a clearer capture.",
			})
		}
		log.Printf("❌ [TUTOR] Screenshot parse error: %v", err)
		return upstreamFailure(c, err, "Failed to parse screenshot. Please try again.")
	}

	// "phrase" keeps the single-phrase shape older clients expect;
	// "phrases" carries the full selectable list.
	return c.JSON(fiber.Map{"phrase": phrases[0], "phrases": phrases})
}
