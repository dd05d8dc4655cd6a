package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"briefer/internal/summarizer"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const welcomeText = `🤖 *Welcome\!*

Send me a text of at least 50 words and I will summarize it\.
A lone https link is fetched and its article text is summarized\.

– /bounds _min_ _max_ sets summary length bounds
– /model _name_ asks for a specific model instead
– /count shows word counts
– /clear clears the last summary
– /download sends the last summary as a file
– /resetcache forgets every remembered summary`

const countText = "📊 Input: %d words\\.\nSummary: %d words\\."

func (b *Bot) handleStartCommand(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	b.reply(ctx, update, func(chatID int64, _ []string) error {
		return b.sendMessage(ctx, chatID, welcomeText, nil)
	})
}

func (b *Bot) handleBoundsCommand(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	b.reply(ctx, update, func(chatID int64, args []string) error {
		bounds, err := parseBoundsArgs(args)
		if err != nil {
			return b.sendMessage(ctx, chatID, "❌ Usage: /bounds _min_ _max_ with 0 ≤ min < max\\.", nil)
		}

		b.setChatOptions(chatID, bounds)

		return b.sendMessage(ctx, chatID, fmt.Sprintf(
			"✅ Summary length bounds are %d–%d\\.",
			bounds.MinLength,
			bounds.MaxLength,
		), nil)
	})
}

func (b *Bot) handleModelCommand(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	b.reply(ctx, update, func(chatID int64, args []string) error {
		if len(args) == 0 {
			b.setChatOptions(chatID, b.defaults)

			return b.sendMessage(ctx, chatID, "✅ Default length bounds are restored\\.", nil)
		}

		model := strings.TrimSpace(args[0])
		b.setChatOptions(chatID, summarizer.ModelSelect{Model: model})

		return b.sendMessage(ctx, chatID, "✅ Model is set to "+tgbot.EscapeMarkdown(model)+"\\.", nil)
	})
}

func (b *Bot) handleCountCommand(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	b.reply(ctx, update, func(chatID int64, _ []string) error {
		session := b.chat(chatID).session

		return b.sendMessage(ctx, chatID, fmt.Sprintf(
			countText,
			session.InputWordCount(),
			session.SummaryWordCount(),
		), nil)
	})
}

func (b *Bot) handleClearCommand(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	b.reply(ctx, update, func(chatID int64, _ []string) error {
		return b.clearLastResult(ctx, chatID)
	})
}

func (b *Bot) handleDownloadCommand(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	b.reply(ctx, update, func(chatID int64, _ []string) error {
		return b.downloadLastResult(ctx, chatID)
	})
}

func (b *Bot) handleResetCacheCommand(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	b.reply(ctx, update, func(chatID int64, _ []string) error {
		entries := b.cache.Len()

		if err := b.cache.Clear(ctx); err != nil {
			b.log.WarnContext(ctx, "Summary cache is cleared in memory only",
				"error", err,
				"chatID", chatID)
		}

		return b.sendMessage(ctx, chatID, fmt.Sprintf("🧹 %d remembered summaries are forgotten\\.", entries), nil)
	})
}

// reply runs fn for a command message with its arguments.
func (b *Bot) reply(
	ctx context.Context,
	update *models.Update,
	fn func(chatID int64, args []string) error,
) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	fields := strings.Fields(update.Message.Text)

	var command string
	var args []string
	if len(fields) > 0 {
		command = fields[0]
		args = fields[1:]
	}

	if err := fn(chatID, args); err != nil {
		b.log.ErrorContext(ctx, "Failed to handle command",
			"error", err,
			"command", command,
			"chatID", chatID,
			"messageID", update.Message.ID)
	}
}

func parseBoundsArgs(args []string) (summarizer.LengthBounds, error) {
	if len(args) != 2 {
		return summarizer.LengthBounds{}, fmt.Errorf("expected 2 arguments, got %d", len(args))
	}

	minLength, err := strconv.Atoi(args[0])
	if err != nil {
		return summarizer.LengthBounds{}, fmt.Errorf("parse min length: %w", err)
	}

	maxLength, err := strconv.Atoi(args[1])
	if err != nil {
		return summarizer.LengthBounds{}, fmt.Errorf("parse max length: %w", err)
	}

	bounds := summarizer.LengthBounds{MinLength: minLength, MaxLength: maxLength}

	return bounds, bounds.Validate()
}
