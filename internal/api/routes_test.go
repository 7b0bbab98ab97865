package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitalform/backend-api/internal/config"
	"github.com/vitalform/backend-api/internal/database"
	"github.com/vitalform/backend-api/internal/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewSQLiteConnection(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sessions := services.NewSessionService(db)

	router := gin.New()
	SetupRoutes(router, Dependencies{
		DB:       db,
		OTP:      services.NewOTPService(db, sessions, nil),
		Sessions: sessions,
		Vault:    services.NewMemoryTokenVault(),
		Config: &config.Config{
			Server:   config.ServerConfig{PublicURL: "https://vitalform.example"},
			Telegram: config.TelegramConfig{BotSecret: "test-secret"},
		},
		Logger: zap.NewNop(),
	})
	return router
}

func TestSetupRoutes_HealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/health", "/ready", "/live"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "GET %s", path)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodHead, "/health", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupRoutes_AuthFlow(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"telegram": "@alice"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp/request", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var issued map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))
	assert.Equal(t, true, issued["success"])
}

func TestSetupRoutes_ProtectedRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSetupRoutes_WebhookAlwaysAcknowledges(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupRoutes_UnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
