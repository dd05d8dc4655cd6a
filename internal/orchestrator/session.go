package orchestrator

import (
	"context"
	"errors"
	"sync"

	"briefer/internal/summarizer"
	"briefer/internal/validator"
)

// ErrBusy is returned when a session already has a request in flight.
var ErrBusy = errors.New("a summarization is already in progress")

// Session is the state one user interacts with: a single pending request
// slot and the last successful result.
type Session struct {
	orchestrator *Orchestrator

	mu         sync.Mutex
	pending    bool
	inputWords int
	last       *Outcome
}

func NewSession(o *Orchestrator) *Session {
	return &Session{orchestrator: o}
}

// SummarizeAsync starts a request and returns immediately. The channel
// receives exactly one outcome. Once started the request is not cancelled by
// ctx; the transport timeout bounds it.
func (s *Session) SummarizeAsync(
	ctx context.Context,
	text string,
	opts summarizer.Options,
) (<-chan Outcome, error) {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.pending = true
	s.inputWords = validator.CountWords(text)
	s.mu.Unlock()

	ch := make(chan Outcome, 1)
	runCtx := context.WithoutCancel(ctx)

	go func() {
		defer close(ch)

		outcome := s.orchestrator.Summarize(runCtx, text, opts)

		s.mu.Lock()
		s.pending = false
		if outcome.OK() {
			s.last = &outcome
		}
		s.mu.Unlock()

		ch <- outcome
	}()

	return ch, nil
}

// Summarize is the blocking form of SummarizeAsync.
func (s *Session) Summarize(ctx context.Context, text string, opts summarizer.Options) (Outcome, error) {
	ch, err := s.SummarizeAsync(ctx, text, opts)
	if err != nil {
		return Outcome{}, err
	}

	return <-ch, nil
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pending
}

func (s *Session) LastResult() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return Outcome{}, false
	}

	return *s.last, true
}

func (s *Session) ClearLastResult() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = nil
}

// InputWordCount returns the word count of the most recently submitted text.
func (s *Session) InputWordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inputWords
}

func (s *Session) SummaryWordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return 0
	}

	return validator.CountWords(s.last.Summary)
}
