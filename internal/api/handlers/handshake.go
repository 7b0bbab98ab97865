package handlers

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vitalform/backend-api/internal/logging"
	"github.com/vitalform/backend-api/internal/middleware"
	"github.com/vitalform/backend-api/internal/models"
	"github.com/vitalform/backend-api/internal/services"
)

const handshakeTTLSeconds = 300

// HandshakeHandler runs the "confirm in bot, redirect to site" flow. The bot
// trades its shared secret for a five-minute token; the browser then hits the
// callback, which consumes the token exactly once.
type HandshakeHandler struct {
	vault     services.TokenVault
	botSecret string
	publicURL string
}

func NewHandshakeHandler(vault services.TokenVault, botSecret, publicURL string) *HandshakeHandler {
	return &HandshakeHandler{
		vault:     vault,
		botSecret: botSecret,
		publicURL: publicURL,
	}
}

// IssueToken mints a handshake token for the bot. Only callers holding the
// configured bot secret may mint.
func (h *HandshakeHandler) IssueToken(c *gin.Context) {
	if h.botSecret == "" {
		logging.Default().WithComponent("handshake").Error("TELEGRAM_BOT_SECRET is not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error"})
		return
	}

	var req models.HandshakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and botToken are required"})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.BotToken), []byte(h.botSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid bot token"})
		return
	}

	token, err := h.vault.Issue(req.UserID)
	if err != nil {
		middleware.RecordError(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, models.HandshakeResponse{
		Token:       token,
		CallbackURL: fmt.Sprintf("%s/auth/bot/callback?token=%s&user_id=%d", h.publicURL, token, req.UserID),
		ExpiresIn:   handshakeTTLSeconds,
	})
}

// Callback consumes the handshake token and bounces the browser back to the
// site. The token is deleted on first success, so a replayed callback URL
// lands on the error redirect.
func (h *HandshakeHandler) Callback(c *gin.Context) {
	token := c.Query("token")
	userIDParam := c.Query("user_id")

	userID, err := strconv.ParseInt(userIDParam, 10, 64)
	if token == "" || err != nil {
		c.Redirect(http.StatusFound, h.publicURL+"/?auth_error=invalid_token")
		return
	}

	vaultUserID, ok := h.vault.Verify(token)
	if !ok || vaultUserID != userID {
		c.Redirect(http.StatusFound, h.publicURL+"/?auth_error=invalid_token")
		return
	}

	h.vault.Delete(token)
	c.Redirect(http.StatusFound, fmt.Sprintf("%s/?auth_token=%s&user_id=%d", h.publicURL, token, userID))
}
