package spacer

import "errors"

var (
	// ErrInvalidThickness is returned when thickness text does not parse to a finite positive number.
	ErrInvalidThickness = errors.New("thickness must be a finite positive number of inches")
	// ErrNotANumber is returned when text does not parse to a finite number within range.
	ErrNotANumber = errors.New("value must be a finite number of inches")
	// ErrEmptyName is returned when a spacer is added without a name.
	ErrEmptyName = errors.New("spacer name must not be empty")
	// ErrInvalidName is returned when a spacer name contains control characters such as newlines or tabs.
	ErrInvalidName = errors.New("spacer name must not contain control characters")
	// ErrSpacerNotFound is returned when no spacer carries the requested id.
	ErrSpacerNotFound = errors.New("spacer not found")
	// ErrIDsExhausted is returned when the registry has no spacer ids left to issue.
	ErrIDsExhausted = errors.New("spacer ids exhausted")
	// ErrInvalidSnapshot is returned when restored spacers violate registry rules.
	ErrInvalidSnapshot = errors.New("invalid spacer snapshot")
)
