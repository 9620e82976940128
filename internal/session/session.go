// Package session owns the aggregate a front end works on: the spacer
// registry, the output log, the current page and the text the user has typed
// but not yet committed. The owner passes the State into every operation;
// State itself does no locking.
package session

import (
	"errors"
	"fmt"

	"github.com/eugenenazirov/spacing-calculator/internal/calculator"
	"github.com/eugenenazirov/spacing-calculator/internal/outputlog"
	"github.com/eugenenazirov/spacing-calculator/internal/spacer"
)

// ErrUnknownPage is returned for a page marker other than main or settings.
var ErrUnknownPage = errors.New("unknown page")

// Page marks which screen the front end last showed.
type Page string

const (
	PageMain     Page = "main"
	PageSettings Page = "settings"
)

// Valid reports whether p is a known page.
func (p Page) Valid() bool {
	return p == PageMain || p == PageSettings
}

// Draft holds uncommitted input text.
type Draft struct {
	Target    string `json:"target"`
	Name      string `json:"name"`
	Thickness string `json:"thickness"`
}

// State is the whole persisted session.
type State struct {
	Registry *spacer.Registry
	Log      *outputlog.Log
	Page     Page
	Draft    Draft
}

// New builds a default-constructed session seeded with defs. A nil seed
// uses the built-in spacers.
func New(defs []spacer.Definition) (*State, error) {
	if defs == nil {
		defs = spacer.DefaultDefinitions()
	}
	registry, err := spacer.NewRegistryFrom(defs)
	if err != nil {
		return nil, fmt.Errorf("seed registry: %w", err)
	}
	return &State{
		Registry: registry,
		Log:      outputlog.New(),
		Page:     PageMain,
	}, nil
}

// Default returns a session seeded with the built-in spacers.
func Default() *State {
	return &State{
		Registry: spacer.NewDefaultRegistry(),
		Log:      outputlog.New(),
		Page:     PageMain,
	}
}

// CurrentFit computes the fit for the drafted target text.
func (s *State) CurrentFit(calc calculator.Calculator) (calculator.Result, error) {
	return calculator.Compute(calc, s.Draft.Target, s.Registry)
}

// SaveOutput fits targetText, appends the formatted block to the log and
// clears the drafted target. Nothing is appended when the target is not
// computable.
func (s *State) SaveOutput(calc calculator.Calculator, targetText string) (outputlog.Entry, error) {
	result, err := calculator.Compute(calc, targetText, s.Registry)
	if err != nil {
		return outputlog.Entry{}, err
	}
	entry, err := s.Log.Append(outputlog.FormatEntry(targetText, result))
	if err != nil {
		return outputlog.Entry{}, err
	}
	s.Draft.Target = ""
	return entry, nil
}

// CommitDraftSpacer adds the drafted name and thickness as a spacer and
// clears both fields on success. On failure the draft is left for the user
// to correct.
func (s *State) CommitDraftSpacer() (spacer.Spacer, error) {
	added, err := s.Registry.Add(s.Draft.Name, s.Draft.Thickness)
	if err != nil {
		return spacer.Spacer{}, err
	}
	s.Draft.Name = ""
	s.Draft.Thickness = ""
	return added, nil
}

// SetPage switches the page marker.
func (s *State) SetPage(p Page) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPage, p)
	}
	s.Page = p
	return nil
}

// Reset discards everything, including the log, and reseeds from defs.
func (s *State) Reset(defs []spacer.Definition) error {
	fresh, err := New(defs)
	if err != nil {
		return err
	}
	*s = *fresh
	return nil
}
