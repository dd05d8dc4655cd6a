package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Sender is the subset of *bot.Bot whose calls are paced.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
}

// RateLimiter hands out send slots per chat. Chats never wait on each other;
// messages to one chat leave at least privateChatRate (groupChatRate for
// groups) apart, in the order their slots were reserved.
type RateLimiter struct {
	sender Sender

	mu   sync.Mutex
	next map[int64]time.Time
	now  func() time.Time

	stopped  chan struct{}
	stopOnce sync.Once

	log *slog.Logger
}

func New(sender Sender, log *slog.Logger) *RateLimiter {
	return &RateLimiter{
		sender:  sender,
		next:    make(map[int64]time.Time),
		now:     time.Now,
		stopped: make(chan struct{}),
		log:     log,
	}
}

func (rl *RateLimiter) SendMessage(
	ctx context.Context,
	params *bot.SendMessageParams,
) (*models.Message, error) {
	if err := rl.Wait(ctx, chatIDOf(params.ChatID)); err != nil {
		return nil, err
	}

	return rl.sender.SendMessage(ctx, params)
}

func (rl *RateLimiter) SendDocument(
	ctx context.Context,
	params *bot.SendDocumentParams,
) (*models.Message, error) {
	if err := rl.Wait(ctx, chatIDOf(params.ChatID)); err != nil {
		return nil, err
	}

	return rl.sender.SendDocument(ctx, params)
}

// Wait reserves the next slot for chatID and blocks until it opens. A slot
// abandoned by cancellation stays reserved.
func (rl *RateLimiter) Wait(ctx context.Context, chatID int64) error {
	delay, err := rl.reserve(chatID)
	if err != nil {
		return err
	}

	if delay <= 0 {
		return nil
	}

	rl.log.DebugContext(ctx, "Rate limiting message",
		"chatID", chatID,
		"delay", delay)

	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-rl.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop fails every pending and future Wait with ErrStopped.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopped)
	})
}

func (rl *RateLimiter) reserve(chatID int64) (time.Duration, error) {
	select {
	case <-rl.stopped:
		return 0, ErrStopped
	default:
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	slot := now
	if next, ok := rl.next[chatID]; ok && next.After(now) {
		slot = next
	}
	rl.next[chatID] = slot.Add(rateFor(chatID))

	return slot.Sub(now), nil
}

// chatIDOf maps bot chat identifiers to map keys. Usernames share key 0.
func chatIDOf(id any) int64 {
	switch id := id.(type) {
	case int64:
		return id
	case int:
		return int64(id)
	default:
		return 0
	}
}

func rateFor(chatID int64) time.Duration {
	if chatID < 0 {
		return groupChatRate
	}
	return privateChatRate
}
