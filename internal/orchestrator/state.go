package orchestrator

import (
	"slices"

	"briefer/internal/summarizer"
)

type Status int

const (
	StatusIdle Status = iota
	StatusCacheCheck
	StatusValidating
	StatusRemote
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusCacheCheck:
		return "cache_check"
	case StatusValidating:
		return "validating"
	case StatusRemote:
		return "remote"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

//nolint:gochecknoglobals // Transition table meant to be immutable.
var allowedTransitions = map[Status][]Status{
	StatusIdle:       {StatusCacheCheck},
	StatusCacheCheck: {StatusDone, StatusValidating},
	StatusValidating: {StatusDone, StatusRemote},
	StatusRemote:     {StatusDone},
}

func canTransition(from, to Status) bool {
	return slices.Contains(allowedTransitions[from], to)
}

// RequestState tracks one summarize call. It is never shared between calls.
type RequestState struct {
	Text      string
	Options   summarizer.Options
	Status    Status
	Err       error
	Summary   string
	FromCache bool
}

// Outcome is the terminal view of a request handed back to the caller.
type Outcome struct {
	Summary   string
	FromCache bool
	// Err is nil on success. Message holds its user-facing text.
	Err     error
	Message string
	// Warning carries a non-fatal persistence failure next to a valid summary.
	Warning error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}
