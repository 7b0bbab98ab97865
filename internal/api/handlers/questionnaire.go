package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vitalform/backend-api/internal/logging"
	"github.com/vitalform/backend-api/internal/middleware"
	"github.com/vitalform/backend-api/internal/models"
	"github.com/vitalform/backend-api/internal/services"
	"github.com/vitalform/backend-api/internal/telegram"
)

// QuestionnaireHandler stores and returns encrypted questionnaire payloads.
// The owner is resolved once per request into an Identity: a valid session
// wins, otherwise inline contact data names the owner anonymously.
type QuestionnaireHandler struct {
	questionnaires *services.QuestionnaireService
	sessions       *services.SessionService
	deliverer      *telegram.Deliverer
	logger         *zap.Logger
}

func NewQuestionnaireHandler(questionnaires *services.QuestionnaireService, sessions *services.SessionService, deliverer *telegram.Deliverer) *QuestionnaireHandler {
	return &QuestionnaireHandler{
		questionnaires: questionnaires,
		sessions:       sessions,
		deliverer:      deliverer,
		logger:         logging.Default().WithComponent("questionnaire_handler"),
	}
}

// Save upserts the caller's questionnaire and, for Telegram contacts, relays
// a best-effort submission notice through the bot.
func (h *QuestionnaireHandler) Save(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	var req models.QuestionnaireSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "answers are required"})
		return
	}

	identity, ok := h.resolveIdentity(c, req.Telegram, req.Phone)
	if !ok {
		return
	}

	q, err := h.questionnaires.Save(c.Request.Context(), identity.ContactIdentifier, identity.ContactType, req.Language, req.Answers)
	if err != nil {
		middleware.RecordError(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save questionnaire"})
		return
	}

	if h.deliverer != nil && identity.ContactType == models.ContactTypeTelegram {
		status := h.deliverer.Notify(c.Request.Context(), identity.ContactIdentifier, "Your VitalForm questionnaire has been saved.")
		if status != models.DeliveryStatusDelivered {
			h.logger.Debug("submission notice not delivered", zap.String("status", string(status)))
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": q.ID, "updatedAt": q.UpdatedAt.UnixMilli()})
}

// Get returns the caller's questionnaire with decrypted answers.
func (h *QuestionnaireHandler) Get(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	identity, ok := h.resolveIdentity(c, c.Query("telegram"), c.Query("phone"))
	if !ok {
		return
	}

	q, answers, err := h.questionnaires.Get(c.Request.Context(), identity.ContactIdentifier)
	if err != nil {
		middleware.RecordError(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load questionnaire"})
		return
	}
	if q == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No questionnaire found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        q.ID,
		"language":  q.Language,
		"answers":   answers,
		"updatedAt": q.UpdatedAt.UnixMilli(),
	})
}

// Delete removes the caller's questionnaire. Idempotent.
func (h *QuestionnaireHandler) Delete(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	identity, ok := h.resolveIdentity(c, c.Query("telegram"), c.Query("phone"))
	if !ok {
		return
	}

	if err := h.questionnaires.Delete(c.Request.Context(), identity.ContactIdentifier); err != nil {
		middleware.RecordError(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete questionnaire"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// configured writes the 500 for a missing encryption key; questionnaire
// storage is unusable without it.
func (h *QuestionnaireHandler) configured(c *gin.Context) bool {
	if h.questionnaires == nil {
		h.logger.Error("AUTH_ENCRYPTION_KEY is not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error"})
		return false
	}
	return true
}

// resolveIdentity decides who owns the request: a verified session first,
// inline contact data second. Writes the error response itself on failure.
func (h *QuestionnaireHandler) resolveIdentity(c *gin.Context, telegramHandle, phone string) (*models.Identity, bool) {
	if token := middleware.BearerToken(c); token != "" {
		identity, err := h.sessions.Verify(c.Request.Context(), token)
		if err != nil {
			middleware.RecordError(c, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify session"})
			return nil, false
		}
		if identity != nil {
			return identity, true
		}
		// A presented but invalid token is rejected rather than silently
		// downgraded to anonymous.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
		return nil, false
	}

	contact, contactType, ok := pickContact(telegramHandle, phone)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide a session token, Telegram username, or phone number"})
		return nil, false
	}
	normalized := services.NormalizeContact(contact, contactType)
	if normalized == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide a session token, Telegram username, or phone number"})
		return nil, false
	}
	return &models.Identity{
		ContactIdentifier: normalized,
		ContactType:       contactType,
		Authenticated:     false,
	}, true
}
