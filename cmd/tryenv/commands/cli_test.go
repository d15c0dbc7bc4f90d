package commands

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/stretchr/testify/require"

	tryenv "github.com/tryEnv-xyz/tryEnv"
	syncpkg "github.com/tryEnv-xyz/tryEnv/pkg/sync"
)

func testApp(t *testing.T) *app {
	t.Helper()
	store := tryenv.NewStore(filepath.Join(t.TempDir(), "tryenv.json"), nil)
	require.NoError(t, store.Load())
	return &app{store: store, logger: slog.Default()}
}

func TestResolveProject(t *testing.T) {
	app := testApp(t)
	p, err := app.store.CreateProject("Demo")
	require.NoError(t, err)

	t.Run("by id", func(t *testing.T) {
		got, err := app.resolveProject(p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
	})

	t.Run("by name", func(t *testing.T) {
		got, err := app.resolveProject("Demo")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := app.resolveProject("Nope")
		assert.True(t, errors.Is(err, tryenv.ErrNotFound))
	})

	t.Run("ambiguous name", func(t *testing.T) {
		_, err := app.store.CreateProject("Demo")
		require.NoError(t, err)

		_, err = app.resolveProject("Demo")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "use the project id")
	})
}

func TestTerminalPrompter(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  syncpkg.Decision
	}{
		{"backup short", "b\n", syncpkg.BackupFirst},
		{"backup word", "backup\n", syncpkg.BackupFirst},
		{"proceed short", "p\n", syncpkg.Proceed},
		{"cancel short", "c\n", syncpkg.Cancel},
		{"empty answer cancels", "\n", syncpkg.Cancel},
		{"garbage cancels", "whatever\n", syncpkg.Cancel},
		{"case insensitive", "B\n", syncpkg.BackupFirst},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &terminalPrompter{in: strings.NewReader(tt.input)}
			got, err := p.ConfirmOverwrite(context.Background(), 2)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProceedPrompter(t *testing.T) {
	got, err := proceedPrompter{}.ConfirmOverwrite(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, syncpkg.Proceed, got)
}
