package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenenazirov/spacing-calculator/internal/calculator"
	"github.com/eugenenazirov/spacing-calculator/internal/session"
	"github.com/eugenenazirov/spacing-calculator/internal/spacer"
	"github.com/eugenenazirov/spacing-calculator/internal/storage"
)

func newTestCLI(t *testing.T) (*cli, *bytes.Buffer) {
	t.Helper()
	state, err := session.New([]spacer.Definition{
		{Name: "Half", Thickness: 500_000, Enabled: true},
		{Name: "Tenth", Thickness: 100_000, Enabled: true},
		{Name: "Skip", Thickness: 250_000, Enabled: false},
	})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return &cli{out: out, calc: calculator.New(), store: storage.NewMemoryStorage(), state: state}, out
}

func TestFitPrintsBreakdown(t *testing.T) {
	c, out := newTestCLI(t)

	require.NoError(t, c.fit(" 1.2 ", false))
	assert.Equal(t, "1.2 in\n\tOff by 0\n\t2 Half 0.5\n\t2 Tenth 0.1\n", out.String())
	assert.Equal(t, 0, c.state.Log.Len())

	_, err := c.store.Read(context.Background())
	assert.ErrorIs(t, err, storage.ErrStateNotFound)
}

func TestFitSaveAppendsAndPersists(t *testing.T) {
	c, out := newTestCLI(t)

	require.NoError(t, c.fit("0.65", true))
	assert.Contains(t, out.String(), "Off by 0.05")
	assert.Equal(t, 1, c.state.Log.Len())

	restored, err := storage.Load(context.Background(), c.store, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Log.Len())
}

func TestFitRejectsNonComputableTarget(t *testing.T) {
	c, out := newTestCLI(t)

	for _, target := range []string{"", "abc", "-1"} {
		err := c.fit(target, true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a non-negative number")
	}
	assert.Empty(t, out.String())
	assert.Equal(t, 0, c.state.Log.Len())
}

func TestListSpacers(t *testing.T) {
	c, out := newTestCLI(t)

	require.NoError(t, c.listSpacers())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "Half")
	assert.Contains(t, lines[2], "Skip")
	assert.Contains(t, lines[2], "false")
	assert.Contains(t, lines[3], "Tenth")
}

func TestHistory(t *testing.T) {
	c, out := newTestCLI(t)

	require.NoError(t, c.history())
	assert.Equal(t, "no saved outputs\n", out.String())

	out.Reset()
	require.NoError(t, c.fit("0.5", true))
	require.NoError(t, c.fit("0.2", true))
	out.Reset()

	require.NoError(t, c.history())
	assert.Equal(t, "0.5 in\n\tOff by 0\n\t1 Half 0.5\n0.2 in\n\tOff by 0\n\t2 Tenth 0.1\n", out.String())
}
