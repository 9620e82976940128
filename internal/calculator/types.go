package calculator

import "github.com/eugenenazirov/spacing-calculator/internal/spacer"

// Allocation is the number of copies of one spacer used by a fit.
type Allocation struct {
	Spacer spacer.Spacer
	Count  int
}

// Result represents the outcome of a greedy fit. Allocations follow the
// order of the spacers passed to Fit, one entry per spacer.
// Residual = Requested - Achieved and is never negative.
type Result struct {
	Requested   spacer.Thickness
	Allocations []Allocation
	Achieved    spacer.Thickness
	Residual    spacer.Thickness
}

// Used returns the allocations with a non-zero count, in registry order.
func (r Result) Used() []Allocation {
	out := make([]Allocation, 0, len(r.Allocations))
	for _, a := range r.Allocations {
		if a.Count > 0 {
			out = append(out, a)
		}
	}
	return out
}

// TotalSpacers returns the number of physical spacers in the fit.
func (r Result) TotalSpacers() int {
	total := 0
	for _, a := range r.Allocations {
		total += a.Count
	}
	return total
}

// Calculator describes the behaviour required from a spacer fit engine.
type Calculator interface {
	Fit(target spacer.Thickness, spacers []spacer.Spacer) Result
}
