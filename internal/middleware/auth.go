package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vitalform/backend-api/internal/models"
)

// IdentityKey is where SessionAuth stores the resolved identity in the gin
// context.
const IdentityKey = "identity"

// SessionVerifier resolves a bearer token to an identity. A nil identity with
// a nil error means the token is unknown or expired.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*models.Identity, error)
}

// SessionAuth rejects requests without a valid session token. It is the only
// gate in front of protected endpoints.
func SessionAuth(sessions SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		identity, err := sessions.Verify(c.Request.Context(), token)
		if err != nil {
			RecordError(c, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify session"})
			return
		}
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// BearerToken extracts the token from the Authorization header. Missing or
// malformed headers yield the empty string.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// IdentityFrom pulls the identity SessionAuth stored, if any.
func IdentityFrom(c *gin.Context) *models.Identity {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*models.Identity)
	return identity
}
