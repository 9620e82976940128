package outputlog

import "errors"

var (
	// ErrMalformedEntry is returned when a text block does not follow the entry format.
	ErrMalformedEntry = errors.New("malformed output entry")
	// ErrEmptyEntry is returned when appending an empty text block.
	ErrEmptyEntry = errors.New("output entry must not be empty")
)
