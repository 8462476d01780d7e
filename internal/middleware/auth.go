package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rexmirak/Chat-app/internal/token"
	"github.com/rexmirak/Chat-app/pkg/log"
)

const (
	UserIDKey     = "user_id"
	EmailKey      = "email"
	UsernameKey   = "username"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// Auth validates bearer tokens on REST routes using the same manager the
// relay handshake verifies against.
type Auth struct {
	tokens *token.Manager
}

// NewAuth creates the auth middleware.
func NewAuth(tokens *token.Manager) *Auth {
	return &Auth{tokens: tokens}
}

// RequireAuth returns a Gin middleware that validates bearer tokens and
// stores the caller's identity in the request context.
func (m *Auth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format",
			})
			return
		}

		claims, err := m.tokens.Verify(strings.TrimPrefix(authHeader, BearerPrefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(EmailKey, claims.Email)
		c.Set(UsernameKey, claims.Username)
		c.Set(log.FieldUserID, claims.Subject)
		c.Set(log.FieldUsername, claims.Username)
		c.Next()
	}
}

// UserID extracts the authenticated user ID set by RequireAuth.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
