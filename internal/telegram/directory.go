package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/vitalform/backend-api/internal/database"
	"github.com/vitalform/backend-api/internal/logging"
	"github.com/vitalform/backend-api/internal/models"
	"github.com/vitalform/backend-api/internal/services"
	"github.com/vitalform/backend-api/internal/utils"
)

// Directory persists the username → chat mapping learned from traffic the bot
// has actually seen. Only private one-to-one chats are recorded with a user
// id; that flag is what later authorizes sending a login code there.
type Directory struct {
	db     database.DBPool
	now    func() time.Time
	logger *zap.Logger
}

func NewDirectory(db database.DBPool) *Directory {
	return &Directory{
		db:     db,
		now:    time.Now,
		logger: logging.Default().WithComponent("chat_directory"),
	}
}

// Lookup resolves a normalized handle. A miss is (nil, nil).
func (d *Directory) Lookup(ctx context.Context, handle string) (*models.ChatDirectoryEntry, error) {
	query := `
		SELECT contact_identifier, chat_id, user_id, username, first_name, last_name, updated_at
		FROM chat_directory
		WHERE contact_identifier = $1`

	var entry models.ChatDirectoryEntry
	row := d.db.QueryRow(ctx, query, handle)
	if err := row.Scan(
		&entry.ContactIdentifier,
		&entry.ChatID,
		&entry.UserID,
		&entry.Username,
		&entry.FirstName,
		&entry.LastName,
		&entry.UpdatedAt,
	); err != nil {
		return nil, nil
	}
	return &entry, nil
}

// UpsertFromChat records a chat the bot can message. Anything that is not a
// private chat with a usable username is silently ignored; group chats must
// never become delivery targets.
func (d *Directory) UpsertFromChat(ctx context.Context, chat *tgbotapi.Chat, from *tgbotapi.User) error {
	if chat == nil || chat.Type != "private" || from == nil {
		return nil
	}

	username := from.UserName
	if username == "" {
		username = chat.UserName
	}
	handle := services.NormalizeTelegram(username)
	if handle == "" {
		return nil
	}

	userID := from.ID
	query := `
		INSERT INTO chat_directory (contact_identifier, chat_id, user_id, username, first_name, last_name, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (contact_identifier) DO UPDATE SET
			chat_id = excluded.chat_id,
			user_id = excluded.user_id,
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			updated_at = excluded.updated_at`

	if _, err := d.db.Exec(ctx, query, handle, chat.ID, &userID, username, from.FirstName, from.LastName, d.now()); err != nil {
		return fmt.Errorf("failed to upsert chat directory entry: %w", err)
	}

	d.logger.Debug("chat directory updated", zap.String("handle", utils.MaskContact(handle)), zap.Int64("chat_id", chat.ID))
	return nil
}

// RecordUpdate feeds a webhook update into the directory.
func (d *Directory) RecordUpdate(ctx context.Context, update *tgbotapi.Update) error {
	if update == nil || update.Message == nil {
		return nil
	}
	return d.UpsertFromChat(ctx, update.Message.Chat, update.Message.From)
}
