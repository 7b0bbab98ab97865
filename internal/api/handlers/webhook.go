package handlers

import (
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vitalform/backend-api/internal/logging"
	"github.com/vitalform/backend-api/internal/telegram"
)

// WebhookHandler feeds Telegram updates into the chat directory. It responds
// 200 no matter what happens internally: a non-200 makes Telegram retry the
// update forever, which is worse than losing one.
type WebhookHandler struct {
	directory *telegram.Directory
	logger    *zap.Logger
}

func NewWebhookHandler(directory *telegram.Directory) *WebhookHandler {
	return &WebhookHandler{
		directory: directory,
		logger:    logging.Default().WithComponent("telegram_webhook"),
	}
}

// Handle processes one Telegram Update payload.
func (h *WebhookHandler) Handle(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Warn("unparseable webhook payload", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if h.directory != nil {
		if err := h.directory.RecordUpdate(c.Request.Context(), &update); err != nil {
			h.logger.Warn("failed to record webhook update", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
