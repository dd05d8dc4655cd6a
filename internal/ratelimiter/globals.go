package ratelimiter

import (
	"errors"
	"time"
)

const (
	privateChatRate = time.Second
	groupChatRate   = 3 * time.Second
)

var ErrStopped = errors.New("rate limiter is stopped")
