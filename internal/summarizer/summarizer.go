package summarizer

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidLengthBounds is returned before any network call when the
// requested bounds are out of order or negative.
var ErrInvalidLengthBounds = errors.New("invalid summary length bounds")

// Options selects one of the two request shapes accepted by the remote
// endpoint. It is either ModelSelect or LengthBounds.
type Options interface {
	isOptions()
}

// ModelSelect asks for a specific model with the endpoint's default lengths.
type ModelSelect struct {
	Model string
}

// LengthBounds constrains the generated summary length.
type LengthBounds struct {
	MinLength int
	MaxLength int
}

func (ModelSelect) isOptions()  {}
func (LengthBounds) isOptions() {}

func (b LengthBounds) Validate() error {
	if b.MinLength < 0 || b.MaxLength <= b.MinLength {
		return fmt.Errorf("%w (min = %d, max = %d)", ErrInvalidLengthBounds, b.MinLength, b.MaxLength)
	}

	return nil
}

// Summarizer produces a single summary for a given input text.
type Summarizer interface {
	Summarize(ctx context.Context, text string, opts Options) (string, error)
}
