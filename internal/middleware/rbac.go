package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

// RequireRoles rejects requests whose claims carry none of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// AuthGate switches authentication on or off for a whole router.
// When disabled every request passes and role checks are skipped.
type AuthGate struct {
	auth    *service.AuthService
	enabled bool
}

// NewAuthGate builds a gate; auth may be nil when enabled is false.
func NewAuthGate(auth *service.AuthService, enabled bool) *AuthGate {
	return &AuthGate{auth: auth, enabled: enabled && auth != nil}
}

// Enabled reports whether tokens are enforced.
func (g *AuthGate) Enabled() bool {
	return g != nil && g.enabled
}

// Authenticate requires a valid bearer token when enabled.
func (g *AuthGate) Authenticate() gin.HandlerFunc {
	if !g.Enabled() {
		return passthrough
	}
	return JWT(g.auth)
}

// Require enforces roles when enabled.
func (g *AuthGate) Require(roles ...models.UserRole) gin.HandlerFunc {
	if !g.Enabled() {
		return passthrough
	}
	return RequireRoles(roles...)
}

func passthrough(c *gin.Context) {
	c.Next()
}
