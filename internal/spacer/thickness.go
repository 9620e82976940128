package spacer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MicrosPerInch is the number of Thickness units in one inch.
const MicrosPerInch = 1_000_000

// maxInches bounds parsed values so sums of counts never overflow int64.
const maxInches = 1_000_000

// Thickness is a length in micro-inches. Integer arithmetic keeps greedy
// subtraction and the residual exact.
type Thickness int64

// Inches returns t as a floating point number of inches.
func (t Thickness) Inches() float64 {
	return float64(t) / MicrosPerInch
}

// String formats t as the shortest decimal number of inches, e.g. "0.03125".
func (t Thickness) String() string {
	return strconv.FormatFloat(t.Inches(), 'f', -1, 64)
}

// MarshalText encodes t as decimal inches.
func (t Thickness) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes decimal inches.
func (t *Thickness) UnmarshalText(text []byte) error {
	v, err := ParseInches(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// FromInches converts a float number of inches, rounding to the nearest micro-inch.
func FromInches(inches float64) Thickness {
	return Thickness(math.Round(inches * MicrosPerInch))
}

// ParseInches parses text as a finite number of inches. Zero and negative
// values are accepted; callers apply their own sign rules.
func ParseInches(text string) (Thickness, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return 0, ErrNotANumber
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, raw)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || math.Abs(value) > maxInches {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, raw)
	}
	return FromInches(value), nil
}

// ParseThickness parses spacer thickness text. The result is positive or the
// error is ErrInvalidThickness.
func ParseThickness(text string) (Thickness, error) {
	t, err := ParseInches(text)
	if err != nil || t <= 0 {
		return 0, ErrInvalidThickness
	}
	return t, nil
}
