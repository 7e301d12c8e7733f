package middleware

import (
	"log"
	"sync"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// LoginLimiter throttles login attempts per client IP. The original system
// had no protection on the login endpoint; this is a deliberate hardening
// and does not change the endpoint's success/failure semantics.
type LoginLimiter struct {
	perMinute int
	limiters  sync.Map // map[string]*rate.Limiter
}

// NewLoginLimiter allows perMinute attempts per IP, with a burst of the
// same size.
func NewLoginLimiter(perMinute int) *LoginLimiter {
	return &LoginLimiter{perMinute: perMinute}
}

func (l *LoginLimiter) limiterFor(ip string) *rate.Limiter {
	if v, ok := l.limiters.Load(ip); ok {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.perMinute)
	actual, _ := l.limiters.LoadOrStore(ip, limiter)
	return actual.(*rate.Limiter)
}

// Handler rejects requests over the per-IP budget with 429.
func (l *LoginLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.limiterFor(c.IP()).Allow() {
			log.Printf("🛡️  [LOGIN] Rate limited login attempt from %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many login attempts. Wait a moment and try again.",
			})
		}
		return c.Next()
	}
}
