package spacer

// Spacer is a physical shim of fixed thickness. ID is assigned by the
// Registry and never changes or gets reused.
type Spacer struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Thickness Thickness `json:"thickness"`
	Enabled   bool      `json:"enabled"`
}

// Definition describes a spacer before it has been registered.
type Definition struct {
	Name      string
	Thickness Thickness
	Enabled   bool
}

var builtinSpacers = []Definition{
	{Name: "1/2 Nylon", Thickness: 500_000, Enabled: true},
	{Name: "3/8 Nylon", Thickness: 375_000, Enabled: true},
	{Name: "1/4 Nylon", Thickness: 250_000, Enabled: true},
	{Name: "1/8 Nylon", Thickness: 125_000, Enabled: true},
	{Name: "Thick Teflon", Thickness: 62_500, Enabled: true},
	{Name: "Black Steel", Thickness: 31_250, Enabled: true},
	{Name: "Thin Teflon", Thickness: 31_250, Enabled: true},
	{Name: "Small Black", Thickness: 181_000, Enabled: true},
	{Name: "Large Black", Thickness: 315_000, Enabled: true},
	{Name: "Thick Steel", Thickness: 39_200, Enabled: true},
	{Name: "Thin Steel", Thickness: 21_500, Enabled: true},
}

// DefaultDefinitions returns a copy of the eleven built-in spacers.
func DefaultDefinitions() []Definition {
	out := make([]Definition, len(builtinSpacers))
	copy(out, builtinSpacers)
	return out
}
