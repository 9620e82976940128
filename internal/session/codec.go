package session

import (
	"encoding/json"
	"fmt"

	"github.com/eugenenazirov/spacing-calculator/internal/outputlog"
	"github.com/eugenenazirov/spacing-calculator/internal/spacer"
)

const snapshotVersion = 1

type snapshot struct {
	Version      int               `json:"version"`
	Spacers      []spacer.Spacer   `json:"spacers"`
	NextSpacerID uint64            `json:"next_spacer_id"`
	Outputs      []outputlog.Entry `json:"outputs"`
	Page         Page              `json:"page"`
	Draft        Draft             `json:"draft"`
}

// Encode serializes the session as JSON.
func (s *State) Encode() ([]byte, error) {
	snap := snapshot{
		Version:      snapshotVersion,
		Spacers:      s.Registry.Spacers(),
		NextSpacerID: s.Registry.NextID(),
		Outputs:      s.Log.Entries(),
		Page:         s.Page,
		Draft:        s.Draft,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

// Decode restores a session encoded by Encode. Missing fields take their
// default-constructed values; a missing spacer list is seeded from defs
// (built-ins when defs is nil).
func Decode(data []byte, defs []spacer.Definition) (*State, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if snap.Version > snapshotVersion {
		return nil, fmt.Errorf("decode session: unsupported version %d", snap.Version)
	}

	state, err := New(defs)
	if err != nil {
		return nil, err
	}
	if snap.Spacers != nil {
		registry, err := spacer.Restore(snap.Spacers, snap.NextSpacerID)
		if err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		state.Registry = registry
	}
	log, err := outputlog.Restore(snap.Outputs)
	if err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	state.Log = log
	if snap.Page.Valid() {
		state.Page = snap.Page
	}
	state.Draft = snap.Draft
	return state, nil
}
