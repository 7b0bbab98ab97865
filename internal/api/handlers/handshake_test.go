package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalform/backend-api/internal/services"
)

const (
	testBotSecret = "bot-shared-secret"
	testPublicURL = "https://app.example.com"
)

func newHandshakeRouter(t *testing.T, secret string) (*gin.Engine, services.TokenVault) {
	t.Helper()
	vault := services.NewMemoryTokenVault()
	handler := NewHandshakeHandler(vault, secret, testPublicURL)

	router := gin.New()
	router.POST("/api/v1/auth/bot/token", handler.IssueToken)
	router.GET("/auth/bot/callback", handler.Callback)
	return router, vault
}

func TestIssueHandshakeToken(t *testing.T) {
	router, vault := newHandshakeRouter(t, testBotSecret)

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/bot/token", map[string]any{
		"userId":   42,
		"botToken": testBotSecret,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, float64(300), body["expiresIn"])
	assert.Contains(t, body["callbackUrl"], testPublicURL+"/auth/bot/callback?token="+token)
	assert.Contains(t, body["callbackUrl"], "user_id=42")

	userID, ok := vault.Verify(token)
	require.True(t, ok)
	assert.Equal(t, int64(42), userID)
}

func TestIssueHandshakeToken_WrongSecret(t *testing.T) {
	router, _ := newHandshakeRouter(t, testBotSecret)

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/bot/token", map[string]any{
		"userId":   42,
		"botToken": "guess",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIssueHandshakeToken_MissingFields(t *testing.T) {
	router, _ := newHandshakeRouter(t, testBotSecret)

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/bot/token", map[string]any{
		"botToken": testBotSecret,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIssueHandshakeToken_UnconfiguredSecret(t *testing.T) {
	router, _ := newHandshakeRouter(t, "")

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/bot/token", map[string]any{
		"userId":   42,
		"botToken": "anything",
	}, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server configuration error", decodeBody(t, w)["error"])
}

func TestHandshakeCallback_ConsumesTokenOnce(t *testing.T) {
	router, vault := newHandshakeRouter(t, testBotSecret)

	token, err := vault.Issue(42)
	require.NoError(t, err)

	url := fmt.Sprintf("/auth/bot/callback?token=%s&user_id=42", token)
	w := doJSON(t, router, http.MethodGet, url, nil, nil)
	require.Equal(t, http.StatusFound, w.Code)
	location := w.Header().Get("Location")
	assert.Contains(t, location, "auth_token="+token)
	assert.Contains(t, location, "user_id=42")

	// Replaying the same callback URL must fail: the token was consumed.
	w = doJSON(t, router, http.MethodGet, url, nil, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "auth_error=invalid_token")
}

func TestHandshakeCallback_Rejections(t *testing.T) {
	router, vault := newHandshakeRouter(t, testBotSecret)

	token, err := vault.Issue(42)
	require.NoError(t, err)

	tests := []struct {
		name string
		url  string
	}{
		{name: "unknown token", url: "/auth/bot/callback?token=bogus&user_id=42"},
		{name: "user id mismatch", url: fmt.Sprintf("/auth/bot/callback?token=%s&user_id=43", token)},
		{name: "missing user id", url: fmt.Sprintf("/auth/bot/callback?token=%s", token)},
		{name: "missing token", url: "/auth/bot/callback?user_id=42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodGet, tt.url, nil, nil)
			require.Equal(t, http.StatusFound, w.Code)
			assert.Contains(t, w.Header().Get("Location"), "auth_error=invalid_token")
		})
	}

	// The rejected attempts above must not have consumed the token.
	_, ok := vault.Verify(token)
	assert.True(t, ok)
}
