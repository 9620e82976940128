package calculator

import "errors"

var (
	// ErrNotComputable is returned when the target text is empty, unparseable or negative.
	// It marks a "no result yet" state rather than a failure.
	ErrNotComputable = errors.New("target thickness is not computable")
)
