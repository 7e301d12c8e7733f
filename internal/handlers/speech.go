package handlers

import (
	"log"
	"strings"

	"grammarbuddy/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SpeechHandler serves pronunciation audio.
type SpeechHandler struct {
	speech *services.SpeechService
}

// NewSpeechHandler creates a new speech handler
func NewSpeechHandler(speech *services.SpeechService) *SpeechHandler {
	return &SpeechHandler{speech: speech}
}

// Speak synthesizes Dutch text to base64 MP3 audio.
// POST /api/speak
func (h *SpeechHandler) Speak(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No text provided",
		})
	}

	audio, err := h.speech.Synthesize(c.Context(), strings.TrimSpace(req.Text))
	if err != nil {
		log.Printf("❌ [SPEECH] Synthesis error: %v", err)
		return upstreamFailure(c, err, "Pronunciation failed. Please try again.")
	}
	return c.JSON(fiber.Map{"audio": audio})
}
