// Package telegram delivers one-time codes over the Telegram Bot API and
// maintains the directory of chats the bot is allowed to message.
package telegram

import (
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotAPI is the slice of the Telegram client the delivery path needs. Tests
// substitute a fake; production uses *tgbotapi.BotAPI.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// NewBot dials the Bot API with a bounded HTTP client so a slow Telegram
// never stalls code issuance indefinitely.
func NewBot(token string) (BotAPI, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	return tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
}
