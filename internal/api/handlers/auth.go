package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vitalform/backend-api/internal/middleware"
	"github.com/vitalform/backend-api/internal/models"
	"github.com/vitalform/backend-api/internal/services"
)

// AuthHandler serves the OTP login flow and session lifecycle.
type AuthHandler struct {
	otp      *services.OTPService
	sessions *services.SessionService
}

func NewAuthHandler(otp *services.OTPService, sessions *services.SessionService) *AuthHandler {
	return &AuthHandler{
		otp:      otp,
		sessions: sessions,
	}
}

// RequestOTP issues a one-time code for the given contact and reports the
// delivery outcome. The code itself never appears in the response.
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req models.OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	contact, contactType, ok := pickContact(req.Telegram, req.Phone)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide a Telegram username or phone number"})
		return
	}

	result, err := h.otp.Issue(c.Request.Context(), contact, contactType)
	if err != nil {
		if errors.Is(err, services.ErrMissingContact) || errors.Is(err, services.ErrUnsupportedContactType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Provide a Telegram username or phone number"})
			return
		}
		middleware.RecordError(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"delivery": result.Status,
		"message":  result.Message,
	})
}

// VerifyOTP exchanges a live code for a session token. All credential
// failures collapse to the same message so identifiers cannot be enumerated.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req models.OTPVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "otp is required"})
		return
	}

	contact, contactType, ok := pickContact(req.Telegram, req.Phone)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide a Telegram username or phone number"})
		return
	}

	session, err := h.otp.Verify(c.Request.Context(), contact, contactType, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCodeNotFound), errors.Is(err, services.ErrCodeExpired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired OTP"})
		case errors.Is(err, services.ErrMissingContact), errors.Is(err, services.ErrUnsupportedContactType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Provide a Telegram username or phone number"})
		default:
			middleware.RecordError(c, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify code"})
		}
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		Success:      true,
		SessionToken: session.Token,
		ExpiresAt:    session.ExpiresAt.UnixMilli(),
	})
}

// SignOut deletes the caller's session. Signing out an unknown or already
// deleted token still succeeds.
func (h *AuthHandler) SignOut(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token != "" {
		if err := h.sessions.Delete(c.Request.Context(), token); err != nil {
			middleware.RecordError(c, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign out"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// WhoAmI echoes the identity behind a valid session token. Runs behind
// SessionAuth.
func (h *AuthHandler) WhoAmI(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	c.JSON(http.StatusOK, identity)
}

// pickContact selects the contact method: Telegram wins when both are set.
func pickContact(telegram, phone string) (string, string, bool) {
	switch {
	case telegram != "":
		return telegram, models.ContactTypeTelegram, true
	case phone != "":
		return phone, models.ContactTypePhone, true
	default:
		return "", "", false
	}
}
