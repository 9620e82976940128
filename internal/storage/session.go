package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eugenenazirov/spacing-calculator/internal/session"
	"github.com/eugenenazirov/spacing-calculator/internal/spacer"
)

// Load reads and decodes the saved session.
func Load(ctx context.Context, store Storage, seed []spacer.Definition) (*session.State, error) {
	data, err := store.Read(ctx)
	if err != nil {
		return nil, err
	}
	return session.Decode(data, seed)
}

// LoadOrDefault loads the saved session and falls back to a fresh one seeded
// with seed when nothing is stored or the stored state is unreadable. Losing
// a corrupt state is preferred over refusing to start.
func LoadOrDefault(ctx context.Context, store Storage, seed []spacer.Definition, logger *zap.Logger) (*session.State, error) {
	state, err := Load(ctx, store, seed)
	if err == nil {
		return state, nil
	}
	if errors.Is(err, ErrStateNotFound) {
		logger.Info("no saved state, starting fresh")
	} else {
		logger.Warn("failed to load saved state, starting fresh", zap.Error(err))
	}

	fresh, seedErr := session.New(seed)
	if seedErr != nil {
		return nil, fmt.Errorf("build default state: %w", seedErr)
	}
	return fresh, nil
}

// Save encodes and writes the session.
func Save(ctx context.Context, store Storage, state *session.State) error {
	data, err := state.Encode()
	if err != nil {
		return err
	}
	if err := store.Write(ctx, data); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
