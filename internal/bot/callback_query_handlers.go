package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, api *tgbot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}

	chatID := callbackChatID(cb)

	err := b.withEmptyCallbackAnswer(ctx, api, cb, func() error {
		switch data := strings.TrimSpace(cb.Data); data {
		case callbackClear:
			return b.clearLastResult(ctx, chatID)
		case callbackDownload:
			return b.downloadLastResult(ctx, chatID)
		default:
			return fmt.Errorf("unknown callback data %q", data)
		}
	})
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to handle callback query",
			"error", err,
			"chatID", chatID,
			"userID", cb.From.ID,
			"data", cb.Data)
	}
}

func (b *Bot) withEmptyCallbackAnswer(
	ctx context.Context,
	api *tgbot.Bot,
	cb *models.CallbackQuery,
	fn func() error,
) error {
	var errs []error

	if _, err := api.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
	}); err != nil {
		errs = append(errs, fmt.Errorf("answer callback query: %w", err))
	}

	if err := fn(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (b *Bot) clearLastResult(ctx context.Context, chatID int64) error {
	b.chat(chatID).session.ClearLastResult()

	return b.sendMessage(ctx, chatID, "🧹 Summary is cleared\\.", nil)
}

func (b *Bot) downloadLastResult(ctx context.Context, chatID int64) error {
	last, ok := b.chat(chatID).session.LastResult()
	if !ok {
		return b.sendMessage(ctx, chatID, "✖️ There is no summary to download\\.", nil)
	}

	if _, err := b.rateLimiter.SendDocument(ctx, &tgbot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: downloadFilename,
			Data:     strings.NewReader(last.Summary),
		},
	}); err != nil {
		return fmt.Errorf("send document: %w", err)
	}

	return nil
}
