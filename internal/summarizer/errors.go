package summarizer

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse means the endpoint answered 200 without a summary.
var ErrMalformedResponse = errors.New("no summary found in the response")

// TransportError wraps network, timeout and (de)serialization failures.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError reports a non-200 answer from the endpoint.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote returned status %d", e.StatusCode)
	}

	return fmt.Sprintf("remote returned status %d: %s", e.StatusCode, e.Body)
}
