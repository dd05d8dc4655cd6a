package validator

import "strings"

const (
	MinWords = 50

	tooShortMessage = "Input text must contain at least 50 words."
)

// ValidationError reports input that is too short to summarize.
type ValidationError struct {
	Words int
}

func (e *ValidationError) Error() string {
	return tooShortMessage
}

// Result is the outcome of Validate.
type Result struct {
	Words int
	// Empty marks input with no words. It is valid but there is nothing to
	// summarize, which differs from input that is too short.
	Empty bool
	Valid bool
}

// Err returns a *ValidationError for invalid results and nil otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}

	return &ValidationError{Words: r.Words}
}

// CountWords returns the number of whitespace-delimited non-empty tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

func Validate(text string) Result {
	words := CountWords(text)

	if words > 0 && words < MinWords {
		return Result{
			Words: words,
			Valid: false,
		}
	}

	return Result{
		Words: words,
		Empty: words == 0,
		Valid: true,
	}
}
