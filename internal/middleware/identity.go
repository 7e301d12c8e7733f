package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// IdentityCookie is the cookie carrying the logged-in username (or "guest").
// It is readable by client script: the UI shows the current identity and
// logs out by clearing it.
const IdentityCookie = "dgb_user"

const identityLocal = "identity"

// ResolveIdentity reads the identity cookie and stores its value in the
// request context. A missing cookie resolves to "no identity", never an
// error. No server-side session lookup happens here or anywhere else.
func ResolveIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if v := c.Cookies(IdentityCookie); v != "" {
			c.Locals(identityLocal, v)
		}
		return c.Next()
	}
}

// CurrentIdentity returns the resolved identity and whether one was present.
// Guests resolve as ("guest", true); an absent cookie as ("", false).
func CurrentIdentity(c *fiber.Ctx) (string, bool) {
	v, ok := c.Locals(identityLocal).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
