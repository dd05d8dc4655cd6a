package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"briefer/internal/summarizer"
	"briefer/internal/validator"
)

const (
	malformedResponseMessage  = "No summary found in the response."
	transportFailureMessage   = "An error occurred while summarizing the text."
	nothingToSummarizeMessage = "Nothing to summarize."
	invalidBoundsMessage      = "Summary length bounds are invalid: min length must be below max length."
	remoteFailureFormat       = "Failed to summarize text. Status: %d"
)

// ErrNothingToSummarize is returned for input without words.
var ErrNothingToSummarize = errors.New("nothing to summarize")

type Cache interface {
	Get(text string) (string, bool)
	Put(ctx context.Context, text, summary string) error
}

type Orchestrator struct {
	cache      Cache
	summarizer summarizer.Summarizer
	observe    func(RequestState)
	log        *slog.Logger
}

type Option func(*Orchestrator)

// WithStateObserver registers fn to receive a copy of the request state after
// every transition.
func WithStateObserver(fn func(RequestState)) Option {
	return func(o *Orchestrator) {
		o.observe = fn
	}
}

func New(c Cache, s summarizer.Summarizer, log *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cache:      c,
		summarizer: s,
		log:        log,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Summarize runs one request through cache lookup, validation and the remote
// call. Cache hits are returned without validation.
func (o *Orchestrator) Summarize(ctx context.Context, text string, opts summarizer.Options) Outcome {
	state := &RequestState{Text: text, Options: opts, Status: StatusIdle}

	o.advance(ctx, state, StatusCacheCheck)

	if summary, ok := o.cache.Get(text); ok {
		state.Summary = summary
		state.FromCache = true
		o.advance(ctx, state, StatusDone)

		return Outcome{Summary: summary, FromCache: true}
	}

	o.advance(ctx, state, StatusValidating)

	result := validator.Validate(text)
	if !result.Valid {
		return o.fail(ctx, state, result.Err())
	}
	if result.Empty {
		return o.fail(ctx, state, ErrNothingToSummarize)
	}

	o.advance(ctx, state, StatusRemote)

	summary, err := o.summarizer.Summarize(ctx, text, opts)
	if err != nil {
		o.log.ErrorContext(ctx, "Failed to summarize text",
			"error", err,
			"words", result.Words,
			"textLen", len(text))

		return o.fail(ctx, state, err)
	}

	outcome := Outcome{Summary: summary}

	if err = o.cache.Put(ctx, text, summary); err != nil {
		// The cache already logged the details.
		outcome.Warning = err
	}

	state.Summary = summary
	o.advance(ctx, state, StatusDone)

	return outcome
}

func (o *Orchestrator) fail(ctx context.Context, state *RequestState, err error) Outcome {
	state.Err = err
	o.advance(ctx, state, StatusDone)

	return Outcome{Err: err, Message: UserMessage(err)}
}

func (o *Orchestrator) advance(ctx context.Context, state *RequestState, to Status) {
	if !canTransition(state.Status, to) {
		o.log.WarnContext(ctx, "Unexpected request state transition",
			"from", state.Status.String(),
			"to", to.String())
	}

	o.log.DebugContext(ctx, "Request state changed",
		"from", state.Status.String(),
		"to", to.String(),
		"fromCache", state.FromCache)

	state.Status = to

	if o.observe != nil {
		o.observe(*state)
	}
}

// UserMessage maps a request error to the text shown to the user.
func UserMessage(err error) string {
	var (
		validationErr *validator.ValidationError
		remoteErr     *summarizer.RemoteError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.Is(err, summarizer.ErrMalformedResponse):
		return malformedResponseMessage
	case errors.As(err, &remoteErr):
		return fmt.Sprintf(remoteFailureFormat, remoteErr.StatusCode)
	case errors.Is(err, summarizer.ErrInvalidLengthBounds):
		return invalidBoundsMessage
	case errors.Is(err, ErrNothingToSummarize):
		return nothingToSummarizeMessage
	default:
		return transportFailureMessage
	}
}
