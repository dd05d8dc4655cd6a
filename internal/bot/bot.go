package bot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"briefer/internal/extract"
	"briefer/internal/orchestrator"
	"briefer/internal/ratelimiter"
	"briefer/internal/summarizer"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	updateProcessingTimeout = 5 * time.Minute

	callbackPrefix       = "result_"
	callbackClear        = callbackPrefix + "clear"
	callbackDownload     = callbackPrefix + "download"
	downloadFilename     = "summarized_text.txt"
	maxTelegramTextRunes = 4000
)

// CacheClearer drops every memoized summary.
type CacheClearer interface {
	Clear(ctx context.Context) error
	Len() int
}

// chatState is what one chat sees: its request slot, last result and the
// request shape chosen with /bounds or /model.
type chatState struct {
	session *orchestrator.Session
	opts    summarizer.Options
}

type Bot struct {
	api          *tgbot.Bot
	rateLimiter  *ratelimiter.RateLimiter
	orchestrator *orchestrator.Orchestrator
	cache        CacheClearer
	extractor    *extract.Extractor
	defaults     summarizer.Options
	allowedUsers []int64
	resultKb     *models.InlineKeyboardMarkup

	mu    sync.Mutex
	chats map[int64]*chatState

	log *slog.Logger
}

type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Cache        CacheClearer
	Extractor    *extract.Extractor
	Defaults     summarizer.Options
	AllowedUsers []int64
}

func New(token string, deps Deps, log *slog.Logger) (*Bot, error) {
	b := &Bot{
		orchestrator: deps.Orchestrator,
		cache:        deps.Cache,
		extractor:    deps.Extractor,
		defaults:     deps.Defaults,
		allowedUsers: deps.AllowedUsers,
		resultKb:     getResultKeyboard(),
		chats:        make(map[int64]*chatState),
		log:          log,
	}

	api, err := tgbot.New(
		strings.TrimSpace(token),
		tgbot.WithDefaultHandler(b.handleMessage),
		tgbot.WithMiddlewares(b.allowedUsersMiddleware, b.timeoutMiddleware),
	)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	b.api = api
	b.rateLimiter = ratelimiter.New(api, log)

	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerHandlers() {
	commands := []struct {
		pattern string
		handler tgbot.HandlerFunc
	}{
		{"/start", b.handleStartCommand},
		{"/help", b.handleStartCommand},
		{"/bounds", b.handleBoundsCommand},
		{"/model", b.handleModelCommand},
		{"/count", b.handleCountCommand},
		{"/clear", b.handleClearCommand},
		{"/download", b.handleDownloadCommand},
		{"/resetcache", b.handleResetCacheCommand},
	}

	for _, c := range commands {
		b.api.RegisterHandler(tgbot.HandlerTypeMessageText, c.pattern, tgbot.MatchTypePrefix, c.handler)
	}

	b.api.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, callbackPrefix, tgbot.MatchTypePrefix, b.handleCallbackQuery)
}

// Start blocks until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.api.Start(ctx)

	b.log.InfoContext(ctx, "Bot context is done",
		"error", ctx.Err())
}

func (b *Bot) Stop() {
	if b.rateLimiter != nil {
		b.rateLimiter.Stop()
	}
}

func (b *Bot) chat(chatID int64) *chatState {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.chats[chatID]
	if !ok {
		state = &chatState{
			session: orchestrator.NewSession(b.orchestrator),
			opts:    b.defaults,
		}
		b.chats[chatID] = state
	}

	return state
}

func (b *Bot) chatOptions(chatID int64) summarizer.Options {
	state := b.chat(chatID)

	b.mu.Lock()
	defer b.mu.Unlock()

	return state.opts
}

func (b *Bot) setChatOptions(chatID int64, opts summarizer.Options) {
	state := b.chat(chatID)

	b.mu.Lock()
	defer b.mu.Unlock()

	state.opts = opts
}

func (b *Bot) userAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || slices.Contains(b.allowedUsers, userID)
}

func (b *Bot) allowedUsersMiddleware(next tgbot.HandlerFunc) tgbot.HandlerFunc {
	return func(ctx context.Context, api *tgbot.Bot, update *models.Update) {
		userID, chatID := updateIDs(update)

		if !b.userAllowed(userID) {
			b.log.DebugContext(ctx, "User is not allowed",
				"userID", userID,
				"chatID", chatID)

			return
		}

		next(ctx, api, update)
	}
}

func (b *Bot) timeoutMiddleware(next tgbot.HandlerFunc) tgbot.HandlerFunc {
	return func(ctx context.Context, api *tgbot.Bot, update *models.Update) {
		updateCtx, cancel := context.WithTimeout(ctx, updateProcessingTimeout)
		defer cancel()

		next(updateCtx, api, update)
	}
}

func updateIDs(update *models.Update) (int64, int64) {
	switch {
	case update == nil:
		return 0, 0
	case update.Message != nil:
		var userID int64
		if update.Message.From != nil {
			userID = update.Message.From.ID
		}
		return userID, update.Message.Chat.ID
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID, callbackChatID(update.CallbackQuery)
	default:
		return 0, 0
	}
}

func callbackChatID(cb *models.CallbackQuery) int64 {
	switch {
	case cb == nil:
		return 0
	case cb.Message.Message != nil:
		return cb.Message.Message.Chat.ID
	case cb.Message.InaccessibleMessage != nil:
		return cb.Message.InaccessibleMessage.Chat.ID
	default:
		return 0
	}
}
