package bot

import (
	"context"
	"errors"
	"fmt"

	"briefer/internal/extract"
	"briefer/internal/orchestrator"
	"briefer/internal/validator"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (b *Bot) handleMessage(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	if err := b.handleText(ctx, chatID, update.Message.Text); err != nil {
		b.log.ErrorContext(ctx, "Failed to handle message",
			"error", err,
			"chatID", chatID,
			"messageID", update.Message.ID)
	}
}

// handleText summarizes text as typed. The text is not trimmed: the cache is
// keyed by the exact input.
func (b *Bot) handleText(ctx context.Context, chatID int64, text string) error {
	// Nothing typed yet is not an error, so there is nothing to answer.
	if validator.CountWords(text) == 0 {
		return nil
	}

	if pageURL, ok := extract.SingleURL(text); ok && b.extractor != nil {
		article, err := b.extractor.Extract(ctx, pageURL)
		if err != nil {
			errs := []error{fmt.Errorf("extract article: %w", err)}

			sendErr := b.sendMessage(ctx, chatID, "❌ Failed to fetch the article\\.", nil)
			if sendErr != nil {
				errs = append(errs, fmt.Errorf("send message: %w", sendErr))
			}

			return errors.Join(errs...)
		}

		text = article
	}

	state := b.chat(chatID)

	ch, err := state.session.SummarizeAsync(ctx, text, b.chatOptions(chatID))
	if errors.Is(err, orchestrator.ErrBusy) {
		return b.sendMessage(ctx, chatID, "⏳ Still summarizing the previous text\\.", nil)
	}
	if err != nil {
		return fmt.Errorf("start summarization: %w", err)
	}

	var outcome orchestrator.Outcome
	b.withSpinner(ctx, chatID, func() {
		outcome = <-ch
	})

	if outcome.Warning != nil {
		b.log.WarnContext(ctx, "Summary is not persisted",
			"error", outcome.Warning,
			"chatID", chatID)
	}

	if !outcome.OK() {
		return b.sendMessage(ctx, chatID, formatFailure(outcome), nil)
	}

	return b.sendMessage(
		ctx,
		chatID,
		formatSummary(outcome, state.session.InputWordCount()),
		b.resultKb,
	)
}
