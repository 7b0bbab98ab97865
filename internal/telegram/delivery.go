package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/vitalform/backend-api/internal/logging"
	"github.com/vitalform/backend-api/internal/models"
	"github.com/vitalform/backend-api/internal/services"
	"github.com/vitalform/backend-api/internal/utils"
)

const updateScanLimit = 100

// Deliverer pushes login codes to Telegram users. It only ever sends to chats
// proven to be private one-to-one conversations with the bot: either a
// trusted directory entry or a private chat found in the recent update
// backlog. Everything else reports recipient-unknown rather than risking a
// code landing in a group.
type Deliverer struct {
	bot       BotAPI
	directory *Directory
	logger    *zap.Logger
}

func NewDeliverer(bot BotAPI, directory *Directory) *Deliverer {
	return &Deliverer{
		bot:       bot,
		directory: directory,
		logger:    logging.Default().WithComponent("telegram_delivery"),
	}
}

// DeliverCode sends a one-time code to the handle. The outcome is a status,
// never an error: issuance does not fail because Telegram is down.
func (d *Deliverer) DeliverCode(ctx context.Context, handle, code string) models.DeliveryStatus {
	text := fmt.Sprintf("Your VitalForm login code is %s. It expires in 10 minutes.", code)
	return d.deliver(ctx, handle, text)
}

// Notify sends a free-form message, same resolution rules as DeliverCode.
func (d *Deliverer) Notify(ctx context.Context, handle, text string) models.DeliveryStatus {
	return d.deliver(ctx, handle, text)
}

func (d *Deliverer) deliver(ctx context.Context, handle, text string) models.DeliveryStatus {
	chatID, status := d.resolveChat(ctx, handle)
	if status != models.DeliveryStatusDelivered {
		return status
	}

	if _, err := d.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		d.logger.Warn("telegram send failed", zap.String("handle", utils.MaskContact(handle)), zap.Error(err))
		return models.DeliveryStatusChannelError
	}
	return models.DeliveryStatusDelivered
}

// resolveChat finds a chat id the bot is allowed to message. Returning the
// delivered status means "go ahead and send to chatID".
func (d *Deliverer) resolveChat(ctx context.Context, handle string) (int64, models.DeliveryStatus) {
	entry, err := d.directory.Lookup(ctx, handle)
	if err == nil && entry.Trusted() {
		return entry.ChatID, models.DeliveryStatusDelivered
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Limit = updateScanLimit
	updates, err := d.bot.GetUpdates(cfg)
	if err != nil {
		d.logger.Warn("telegram getUpdates failed", zap.Error(err))
		return 0, models.DeliveryStatusChannelError
	}

	chat, from, ok := findPrivateChat(updates, handle)
	if !ok {
		return 0, models.DeliveryStatusRecipientUnknown
	}

	if err := d.directory.UpsertFromChat(ctx, chat, from); err != nil {
		d.logger.Warn("failed to record discovered chat", zap.String("handle", utils.MaskContact(handle)), zap.Error(err))
	}
	return chat.ID, models.DeliveryStatusDelivered
}

// findPrivateChat scans the update backlog, newest first, for a private chat
// whose sender matches the handle. Group and channel traffic never matches.
func findPrivateChat(updates []tgbotapi.Update, handle string) (*tgbotapi.Chat, *tgbotapi.User, bool) {
	for i := len(updates) - 1; i >= 0; i-- {
		msg := updates[i].Message
		if msg == nil || msg.Chat == nil || msg.From == nil {
			continue
		}
		if msg.Chat.Type != "private" {
			continue
		}
		if services.NormalizeTelegram(msg.From.UserName) == handle {
			return msg.Chat, msg.From, true
		}
	}
	return nil, nil, false
}
