package handlers

import (
	"log"
	"strings"

	"grammarbuddy/internal/middleware"
	"grammarbuddy/pkg/auth"

	"github.com/gofiber/fiber/v2"
)

// cookieMaxAge keeps the identity cookie alive for a year.
const cookieMaxAge = 60 * 60 * 24 * 365

// SessionHandler issues the identity cookie. There is no server-side
// session record: the cookie value is the whole session.
type SessionHandler struct {
	credentials *auth.Credentials
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(credentials *auth.Credentials) *SessionHandler {
	return &SessionHandler{credentials: credentials}
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login validates credentials (or grants guest access) and sets the
// identity cookie.
// POST /api/login
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Username required",
		})
	}

	// Guest access, no password needed
	if username == auth.GuestUser {
		h.setIdentityCookie(c, auth.GuestUser)
		return c.JSON(fiber.Map{"success": true, "user": auth.GuestUser})
	}

	if !h.credentials.Known(username) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unknown user",
		})
	}

	if !h.credentials.Verify(username, req.Password) {
		log.Printf("⚠️ Failed login attempt for user: %s", username)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Incorrect password",
		})
	}

	h.setIdentityCookie(c, username)
	log.Printf("✅ User logged in: %s", username)

	return c.JSON(fiber.Map{"success": true, "user": username})
}

// setIdentityCookie issues the identity cookie. Deliberately not HTTPOnly:
// the client reads it to display the current identity and clears it to
// log out.
func (h *SessionHandler) setIdentityCookie(c *fiber.Ctx, identity string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.IdentityCookie,
		Value:    identity,
		MaxAge:   cookieMaxAge,
		Path:     "/",
		Secure:   true,
		HTTPOnly: false,
		SameSite: "Lax",
	})
}
