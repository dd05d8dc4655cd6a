package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"briefer/internal/orchestrator"
	"briefer/internal/validator"

	tgbot "github.com/go-telegram/bot"
)

const (
	cacheHitText  = "_This summary was retrieved from cache\\._"
	truncatedText = "\n\n_Summary is truncated, use /download for the full text\\._"
)

func formatSummary(outcome orchestrator.Outcome, inputWords int) string {
	summary := outcome.Summary

	var suffix string
	if utf8.RuneCountInString(summary) > maxTelegramTextRunes {
		summary = string([]rune(summary)[:maxTelegramTextRunes])
		suffix = truncatedText
	}

	var b strings.Builder
	b.WriteString("📝 *Summary*\n\n")
	b.WriteString(tgbot.EscapeMarkdown(summary))
	b.WriteString(suffix)
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("_Words: %d → %d_", inputWords, validator.CountWords(outcome.Summary)))

	if outcome.FromCache {
		b.WriteString("\n")
		b.WriteString(cacheHitText)
	}

	return b.String()
}

func formatFailure(outcome orchestrator.Outcome) string {
	return "❌ " + tgbot.EscapeMarkdown(outcome.Message)
}

func normalizeText(text string) string {
	return strings.ToValidUTF8(text, "?")
}
