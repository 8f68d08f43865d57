package ginserver

import (
	"crypto/subtle"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

const (
	// UserIDHeader carries the caller identity set by the upstream gateway
	// after it authenticated the session.
	UserIDHeader      = "X-User-ID"
	AdminTokenHeader  = "X-Admin-Token"
	IdempotencyHeader = "Idempotency-Key"

	principalContextKey = "doorly.principal"
)

type principal struct {
	ID    string
	Admin bool
}

// AuthMiddleware resolves the principal from trusted headers. Requests without
// a user id continue anonymously; handlers decide whether that is enough.
type AuthMiddleware struct {
	AdminToken string
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	id := strings.TrimSpace(c.GetHeader(UserIDHeader))
	admin := m.isAdmin(c.GetHeader(AdminTokenHeader))
	if id == "" && !admin {
		c.Next()
		return
	}
	setPrincipal(c, principal{ID: id, Admin: admin})
	c.Next()
}

func (m AuthMiddleware) isAdmin(token string) bool {
	token = strings.TrimSpace(token)
	if m.AdminToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(m.AdminToken)) == 1
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireUser(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok || p.ID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	return p, true
}

func requireAdmin(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	if !p.Admin {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return principal{}, false
	}
	if p.ID == "" {
		p.ID = "admin"
	}
	return p, true
}
