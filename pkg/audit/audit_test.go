package audit

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	log, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func TestAppendAndRecent(t *testing.T) {
	log := openTestLog(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, log.Append(Entry{
			Op:      "set-variable",
			Project: "Demo",
			Key:     fmt.Sprintf("KEY_%d", i),
		}))
	}

	entries, err := log.Recent(3)
	require.NoError(t, err)
	require.Equal(t, 3, len(entries))

	// Newest first.
	assert.Equal(t, "KEY_4", entries[0].Key)
	assert.Equal(t, "KEY_2", entries[2].Key)
	for _, e := range entries {
		assert.NotEqual(t, "", e.Timestamp)
	}
}

func TestRecentOnEmptyLog(t *testing.T) {
	log := openTestLog(t)

	entries, err := log.Recent(10)
	require.NoError(t, err)
	assert.Equal(t, 0, len(entries))
}

func TestRecentCapsAtAvailable(t *testing.T) {
	log := openTestLog(t)
	require.NoError(t, log.Append(Entry{Op: "backup"}))

	entries, err := log.Recent(10)
	require.NoError(t, err)
	require.Equal(t, 1, len(entries))
	assert.Equal(t, "backup", entries[0].Op)
}
