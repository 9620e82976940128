package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/eugenenazirov/spacing-calculator/internal/calculator"
	"github.com/eugenenazirov/spacing-calculator/internal/config"
	"github.com/eugenenazirov/spacing-calculator/internal/outputlog"
	"github.com/eugenenazirov/spacing-calculator/internal/session"
	"github.com/eugenenazirov/spacing-calculator/internal/storage"
)

// cli runs one-shot commands against the saved session.
type cli struct {
	out   io.Writer
	calc  calculator.Calculator
	store storage.Storage
	state *session.State
}

// withSession loads the saved session, runs fn and closes storage.
func withSession(cfg config.Config, logger *zap.Logger, fn func(*cli) error) error {
	store, err := storage.Open(cfg.StateBackend, cfg.StatePath)
	if err != nil {
		return fmt.Errorf("open state storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("failed to close state storage", zap.Error(closeErr))
		}
	}()

	state, err := storage.LoadOrDefault(context.Background(), store, cfg.Spacers, logger)
	if err != nil {
		return err
	}

	return fn(&cli{out: os.Stdout, calc: calculator.New(), store: store, state: state})
}

// fit prints the breakdown block for target. With save the block is also
// appended to the output history and the session is written back.
func (c *cli) fit(target string, save bool) error {
	if !save {
		result, err := calculator.Compute(c.calc, target, c.state.Registry)
		if err != nil {
			return fitError(target, err)
		}
		_, err = fmt.Fprintln(c.out, outputlog.FormatEntry(target, result))
		return err
	}

	entry, err := c.state.SaveOutput(c.calc, target)
	if err != nil {
		return fitError(target, err)
	}
	if err := storage.Save(context.Background(), c.store, c.state); err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, entry.Text)
	return err
}

func (c *cli) listSpacers() error {
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTHICKNESS\tENABLED")
	for _, s := range c.state.Registry.Spacers() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\n", s.ID, s.Name, s.Thickness, s.Enabled)
	}
	return tw.Flush()
}

func (c *cli) history() error {
	if c.state.Log.Len() == 0 {
		_, err := fmt.Fprintln(c.out, "no saved outputs")
		return err
	}
	_, err := fmt.Fprintln(c.out, c.state.Log.String())
	return err
}

func fitError(target string, err error) error {
	if errors.Is(err, calculator.ErrNotComputable) {
		return fmt.Errorf("target %q is not a non-negative number", target)
	}
	return err
}
