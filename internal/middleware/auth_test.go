package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalform/backend-api/internal/models"
)

type stubVerifier struct {
	identity *models.Identity
	err      error
	gotToken string
}

func (s *stubVerifier) Verify(_ context.Context, token string) (*models.Identity, error) {
	s.gotToken = token
	return s.identity, s.err
}

func newAuthRouter(verifier SessionVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", SessionAuth(verifier), func(c *gin.Context) {
		identity := IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"contact": identity.ContactIdentifier})
	})
	return router
}

func TestSessionAuth(t *testing.T) {
	t.Run("valid token reaches the handler", func(t *testing.T) {
		verifier := &stubVerifier{identity: &models.Identity{
			ContactIdentifier: "alice",
			ContactType:       models.ContactTypeTelegram,
			Authenticated:     true,
		}}
		router := newAuthRouter(verifier)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer abc123")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "abc123", verifier.gotToken)
		assert.Contains(t, w.Body.String(), "alice")
	})

	t.Run("missing header is rejected before lookup", func(t *testing.T) {
		verifier := &stubVerifier{identity: &models.Identity{ContactIdentifier: "alice"}}
		router := newAuthRouter(verifier)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, verifier.gotToken)
		assert.Contains(t, w.Body.String(), "Authentication required")
	})

	t.Run("unknown token gets 401", func(t *testing.T) {
		router := newAuthRouter(&stubVerifier{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer nope")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid or expired session")
	})

	t.Run("lookup failure gets 500", func(t *testing.T) {
		router := newAuthRouter(&stubVerifier{err: errors.New("connection reset")})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer abc123")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "Failed to verify session")
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"standard", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"surrounding whitespace", "Bearer   abc123  ", "abc123"},
		{"missing", "", ""},
		{"scheme only", "Bearer ", ""},
		{"wrong scheme", "Basic abc123", ""},
		{"no scheme", "abc123", ""},
	}

	gin.SetMode(gin.TestMode)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, BearerToken(c))
		})
	}
}

func TestIdentityFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	require.Nil(t, IdentityFrom(c))

	c.Set(IdentityKey, &models.Identity{ContactIdentifier: "alice"})
	identity := IdentityFrom(c)
	require.NotNil(t, identity)
	assert.Equal(t, "alice", identity.ContactIdentifier)
}
