package calculator

import (
	"github.com/eugenenazirov/spacing-calculator/internal/spacer"
)

type greedyCalculator struct{}

// New creates a Calculator that fills the target largest spacer first.
func New() Calculator {
	return &greedyCalculator{}
}

// Fit walks spacers in the given order, which must be thickness-descending,
// and takes as many copies of each enabled spacer as fit in the remaining
// budget. Disabled spacers are skipped. The result is not globally optimal:
// a combination of smaller spacers can sometimes leave a smaller residual.
func (c *greedyCalculator) Fit(target spacer.Thickness, spacers []spacer.Spacer) Result {
	result := Result{
		Requested:   target,
		Allocations: make([]Allocation, len(spacers)),
	}

	remaining := target
	for i, s := range spacers {
		result.Allocations[i] = Allocation{Spacer: s}
		if !s.Enabled || s.Thickness <= 0 || remaining <= 0 {
			continue
		}
		// same as subtracting s.Thickness while it still fits
		count := remaining / s.Thickness
		result.Allocations[i].Count = int(count)
		remaining -= count * s.Thickness
	}

	result.Residual = remaining
	result.Achieved = target - remaining
	return result
}

// ParseTarget validates target text. Empty, unparseable, non-finite and
// negative values return ErrNotComputable.
func ParseTarget(text string) (spacer.Thickness, error) {
	target, err := spacer.ParseInches(text)
	if err != nil || target < 0 {
		return 0, ErrNotComputable
	}
	return target, nil
}

// Compute parses targetText and fits it against the registry's current order.
func Compute(calc Calculator, targetText string, registry *spacer.Registry) (Result, error) {
	target, err := ParseTarget(targetText)
	if err != nil {
		return Result{}, err
	}
	return calc.Fit(target, registry.Spacers()), nil
}
