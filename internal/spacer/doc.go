// Package spacer holds the spacer inventory: the fixed-point Thickness type,
// the Spacer definition and the Registry that keeps spacers ordered by
// thickness, largest first, across every mutation.
package spacer
