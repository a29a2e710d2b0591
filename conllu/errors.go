package conllu

import (
	"errors"
	"fmt"
)

// ErrFormat is wrapped by every parse failure.
var ErrFormat = errors.New("malformed CoNLL-U")

// ErrOffsetMismatch is returned when a text is not the reconstruction of the
// document it is paired with.
var ErrOffsetMismatch = errors.New("text does not match document tokens")

// FormatError locates a parse failure. Line and Sentence are 1-based, Line is 0
// for failures not tied to a single line.
type FormatError struct {
	Line     int
	Sentence int
	Reason   string
}

func (e *FormatError) Error() string {
	if e.Line == 0 {
		if e.Sentence == 0 {
			return fmt.Sprintf("%s: %s", ErrFormat, e.Reason)
		}
		return fmt.Sprintf("%s: sentence %d: %s", ErrFormat, e.Sentence, e.Reason)
	}
	return fmt.Sprintf("%s: line %d (sentence %d): %s", ErrFormat, e.Line, e.Sentence, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return ErrFormat
}
