package spacer

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// Registry keeps the spacer inventory sorted by thickness, largest first.
// Every mutator finishes with restoreOrder, so readers always observe the
// sorted order. Equal thicknesses keep their previous relative order, which
// decides which of them accrues counts in a fit.
//
// Registry is not safe for concurrent use; owners serialize access.
type Registry struct {
	spacers []Spacer
	nextID  uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{nextID: 1}
}

// NewRegistryFrom registers the given definitions in order.
func NewRegistryFrom(defs []Definition) (*Registry, error) {
	r := NewRegistry()
	for _, def := range defs {
		if def.Thickness <= 0 {
			return nil, fmt.Errorf("spacer %q: %w", def.Name, ErrInvalidThickness)
		}
		if err := validateName(def.Name); err != nil {
			return nil, fmt.Errorf("spacer %q: %w", def.Name, err)
		}
		id, err := r.allocateID()
		if err != nil {
			return nil, err
		}
		r.spacers = append(r.spacers, Spacer{
			ID:        id,
			Name:      def.Name,
			Thickness: def.Thickness,
			Enabled:   def.Enabled,
		})
	}
	r.restoreOrder()
	return r, nil
}

// NewDefaultRegistry returns a registry seeded with the built-in spacers.
func NewDefaultRegistry() *Registry {
	r, err := NewRegistryFrom(builtinSpacers)
	if err != nil {
		panic(fmt.Sprintf("built-in spacers invalid: %v", err))
	}
	return r
}

// Restore rebuilds a registry from persisted spacers. IDs must be non-zero,
// below math.MaxUint64 and unique, and thicknesses positive. nextID is raised
// past the largest ID seen.
func Restore(spacers []Spacer, nextID uint64) (*Registry, error) {
	seen := make(map[uint64]struct{}, len(spacers))
	r := &Registry{spacers: make([]Spacer, 0, len(spacers)), nextID: nextID}
	for _, s := range spacers {
		if s.ID == 0 {
			return nil, fmt.Errorf("%w: spacer %q has no id", ErrInvalidSnapshot, s.Name)
		}
		if s.ID == math.MaxUint64 {
			return nil, fmt.Errorf("%w: spacer %q id out of range", ErrInvalidSnapshot, s.Name)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %d", ErrInvalidSnapshot, s.ID)
		}
		if s.Thickness <= 0 {
			return nil, fmt.Errorf("%w: spacer %d: %v", ErrInvalidSnapshot, s.ID, ErrInvalidThickness)
		}
		seen[s.ID] = struct{}{}
		if s.ID >= r.nextID {
			r.nextID = s.ID + 1
		}
		r.spacers = append(r.spacers, s)
	}
	if r.nextID == 0 {
		r.nextID = 1
	}
	r.restoreOrder()
	return r, nil
}

// Add registers an enabled spacer parsed from user text.
func (r *Registry) Add(name, thicknessText string) (Spacer, error) {
	thickness, err := ParseThickness(thicknessText)
	if err != nil {
		return Spacer{}, err
	}
	if strings.TrimSpace(name) == "" {
		return Spacer{}, ErrEmptyName
	}
	if err := validateName(name); err != nil {
		return Spacer{}, err
	}

	id, err := r.allocateID()
	if err != nil {
		return Spacer{}, err
	}
	s := Spacer{
		ID:        id,
		Name:      name,
		Thickness: thickness,
		Enabled:   true,
	}
	r.spacers = append(r.spacers, s)
	r.restoreOrder()
	return s, nil
}

// UpdateThickness replaces the thickness of spacer id. Text that is not a
// finite positive number leaves the registry untouched.
func (r *Registry) UpdateThickness(id uint64, thicknessText string) error {
	idx := r.IndexOf(id)
	if idx < 0 {
		return ErrSpacerNotFound
	}
	thickness, err := ParseThickness(thicknessText)
	if err != nil {
		return err
	}
	r.spacers[idx].Thickness = thickness
	r.restoreOrder()
	return nil
}

// Rename sets the display name of spacer id. The name may be empty but must
// not contain control characters.
func (r *Registry) Rename(id uint64, name string) error {
	idx := r.IndexOf(id)
	if idx < 0 {
		return ErrSpacerNotFound
	}
	if err := validateName(name); err != nil {
		return err
	}
	r.spacers[idx].Name = name
	return nil
}

// Remove deletes spacer id.
func (r *Registry) Remove(id uint64) (Spacer, error) {
	idx := r.IndexOf(id)
	if idx < 0 {
		return Spacer{}, ErrSpacerNotFound
	}
	removed := r.spacers[idx]
	r.spacers = append(r.spacers[:idx], r.spacers[idx+1:]...)
	r.restoreOrder()
	return removed, nil
}

// ToggleEnabled flips the enabled flag and returns the new value.
func (r *Registry) ToggleEnabled(id uint64) (bool, error) {
	idx := r.IndexOf(id)
	if idx < 0 {
		return false, ErrSpacerNotFound
	}
	r.spacers[idx].Enabled = !r.spacers[idx].Enabled
	return r.spacers[idx].Enabled, nil
}

// SetEnabled sets the enabled flag of spacer id.
func (r *Registry) SetEnabled(id uint64, enabled bool) error {
	idx := r.IndexOf(id)
	if idx < 0 {
		return ErrSpacerNotFound
	}
	r.spacers[idx].Enabled = enabled
	return nil
}

// Get returns spacer id.
func (r *Registry) Get(id uint64) (Spacer, error) {
	idx := r.IndexOf(id)
	if idx < 0 {
		return Spacer{}, ErrSpacerNotFound
	}
	return r.spacers[idx], nil
}

// IndexOf returns the current position of spacer id, or -1.
func (r *Registry) IndexOf(id uint64) int {
	for i := range r.spacers {
		if r.spacers[i].ID == id {
			return i
		}
	}
	return -1
}

// Spacers returns a copy of the inventory in thickness-descending order.
func (r *Registry) Spacers() []Spacer {
	out := make([]Spacer, len(r.spacers))
	copy(out, r.spacers)
	return out
}

// Len returns the number of registered spacers.
func (r *Registry) Len() int {
	return len(r.spacers)
}

// NextID returns the id the next added spacer will receive.
func (r *Registry) NextID() uint64 {
	return r.nextID
}

// validateName rejects names that would break the one-line-per-spacer
// output format.
func validateName(name string) error {
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return ErrInvalidName
	}
	return nil
}

// allocateID hands out the next id. math.MaxUint64 is never issued so the
// counter cannot wrap onto ids already in use.
func (r *Registry) allocateID() (uint64, error) {
	if r.nextID == math.MaxUint64 {
		return 0, ErrIDsExhausted
	}
	id := r.nextID
	r.nextID++
	return id, nil
}

func (r *Registry) restoreOrder() {
	sort.SliceStable(r.spacers, func(i, j int) bool {
		return r.spacers[i].Thickness > r.spacers[j].Thickness
	})
}
