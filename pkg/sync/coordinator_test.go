package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/stretchr/testify/require"

	tryenv "github.com/tryEnv-xyz/tryEnv"
)

// fakeTransport records calls and simulates a remote repository holding a
// single blob.
type fakeTransport struct {
	user       string
	exists     bool
	remoteBlob []byte

	calls  []string
	pushed []byte
	failOn string
}

func (f *fakeTransport) call(name string) error {
	f.calls = append(f.calls, name)
	if name == f.failOn {
		return fmt.Errorf("%s: simulated external command failure", name)
	}
	return nil
}

func (f *fakeTransport) AuthStatus(ctx context.Context) error { return f.call("auth") }

func (f *fakeTransport) CurrentUser(ctx context.Context) (string, error) {
	return f.user, f.call("user")
}

func (f *fakeTransport) RemoteExists(ctx context.Context, owner, name string) (bool, error) {
	return f.exists, f.call("exists")
}

func (f *fakeTransport) CreateRemote(ctx context.Context, name, visibility string) error {
	if err := f.call("create"); err != nil {
		return err
	}
	f.exists = true
	return nil
}

func (f *fakeTransport) RemoteURL(owner, name string) string {
	return "https://example.test/" + owner + "/" + name + ".git"
}

func (f *fakeTransport) InitRepo(ctx context.Context, dir string) error { return f.call("init") }

func (f *fakeTransport) LinkRemote(ctx context.Context, dir, url string) error {
	return f.call("link")
}

func (f *fakeTransport) Stage(ctx context.Context, dir, file string) error { return f.call("stage") }

func (f *fakeTransport) Commit(ctx context.Context, dir, message string) error {
	return f.call("commit")
}

func (f *fakeTransport) ForcePush(ctx context.Context, dir, remote, branch string) error {
	if err := f.call("push"); err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(dir, BlobFileName))
	if err != nil {
		return err
	}
	f.pushed = data
	f.remoteBlob = data
	return nil
}

func (f *fakeTransport) Clone(ctx context.Context, url, dir string) error {
	if err := f.call("clone"); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, BlobFileName), f.remoteBlob, 0o600)
}

var _ Transport = (*fakeTransport)(nil)

type fakePrompter struct {
	decision Decision
	asked    int
}

func (f *fakePrompter) ConfirmOverwrite(ctx context.Context, projects int) (Decision, error) {
	f.asked++
	return f.decision, nil
}

func newCoordinator(t *testing.T, transport *fakeTransport, prompter Prompter, localBlob []byte) (*Coordinator, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tryenv.json")
	if localBlob != nil {
		require.NoError(t, os.WriteFile(path, localBlob, 0o600))
	}
	c, err := New(Config{
		Transport: transport,
		Prompter:  prompter,
		StorePath: path,
	})
	require.NoError(t, err)
	return c, path
}

func TestBackup(t *testing.T) {
	t.Run("creates missing remote and pushes", func(t *testing.T) {
		transport := &fakeTransport{user: "alice"}
		blob := []byte(`[{"id":"p1","name":"Demo"}]`)
		c, _ := newCoordinator(t, transport, nil, blob)

		require.NoError(t, c.Backup(context.Background()))
		assert.Equal(t, []string{"auth", "user", "exists", "create", "init", "link", "stage", "commit", "push"}, transport.calls)
		assert.Equal(t, blob, transport.pushed)
	})

	t.Run("skips creation when remote exists", func(t *testing.T) {
		transport := &fakeTransport{user: "alice", exists: true}
		c, _ := newCoordinator(t, transport, nil, []byte(`[]`))

		require.NoError(t, c.Backup(context.Background()))
		assert.Equal(t, []string{"auth", "user", "exists", "init", "link", "stage", "commit", "push"}, transport.calls)
	})

	t.Run("missing local store backs up as empty collection", func(t *testing.T) {
		transport := &fakeTransport{user: "alice", exists: true}
		c, _ := newCoordinator(t, transport, nil, nil)

		require.NoError(t, c.Backup(context.Background()))
		assert.Equal(t, "[]\n", string(transport.pushed))
	})

	t.Run("aborts on step failure before pushing", func(t *testing.T) {
		transport := &fakeTransport{user: "alice", exists: true, failOn: "commit"}
		c, _ := newCoordinator(t, transport, nil, []byte(`[]`))

		err := c.Backup(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "simulated external command failure")
		assert.Zero(t, transport.pushed)
	})

	t.Run("auth failure surfaces diagnostic", func(t *testing.T) {
		transport := &fakeTransport{user: "alice", failOn: "auth"}
		c, _ := newCoordinator(t, transport, nil, []byte(`[]`))

		err := c.Backup(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "authentication failed")
		assert.Equal(t, []string{"auth"}, transport.calls)
	})
}

func TestRestore(t *testing.T) {
	remote := []byte(`[{"id":"p1","name":"Remote"}]`)

	t.Run("empty local store installs without prompting", func(t *testing.T) {
		transport := &fakeTransport{user: "alice", exists: true, remoteBlob: remote}
		prompter := &fakePrompter{decision: Cancel}
		c, path := newCoordinator(t, transport, prompter, nil)

		require.NoError(t, c.Restore(context.Background()))
		assert.Equal(t, 0, prompter.asked)

		installed, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, remote, installed)
	})

	t.Run("cancel leaves local store byte-for-byte unchanged", func(t *testing.T) {
		local := []byte(`[{"id":"p0","name":"Local"}]`)
		transport := &fakeTransport{user: "alice", exists: true, remoteBlob: remote}
		prompter := &fakePrompter{decision: Cancel}
		c, path := newCoordinator(t, transport, prompter, local)

		err := c.Restore(context.Background())
		assert.True(t, errors.Is(err, ErrCancelled))
		assert.Equal(t, 1, prompter.asked)
		// Nothing past authentication ran.
		assert.Equal(t, []string{"auth"}, transport.calls)

		data, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, local, data)
	})

	t.Run("proceed overwrites local store", func(t *testing.T) {
		local := []byte(`[{"id":"p0","name":"Local"}]`)
		transport := &fakeTransport{user: "alice", exists: true, remoteBlob: remote}
		prompter := &fakePrompter{decision: Proceed}
		c, path := newCoordinator(t, transport, prompter, local)

		require.NoError(t, c.Restore(context.Background()))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, remote, data)
	})

	t.Run("backup-first pushes local before installing remote", func(t *testing.T) {
		local := []byte(`[{"id":"p0","name":"Local"}]`)
		transport := &fakeTransport{user: "alice", exists: true, remoteBlob: remote}
		prompter := &fakePrompter{decision: BackupFirst}
		c, path := newCoordinator(t, transport, prompter, local)

		require.NoError(t, c.Restore(context.Background()))
		assert.Equal(t, local, transport.pushed)

		// The pre-restore backup rewrote the remote blob, so that is what
		// gets installed.
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, local, data)
	})

	t.Run("non-array remote copy is rejected and local kept", func(t *testing.T) {
		local := []byte(`[{"id":"p0","name":"Local"}]`)
		transport := &fakeTransport{user: "alice", exists: true, remoteBlob: []byte(`{"not":"an array"}`)}
		prompter := &fakePrompter{decision: Proceed}
		c, path := newCoordinator(t, transport, prompter, local)

		err := c.Restore(context.Background())
		assert.True(t, errors.Is(err, tryenv.ErrFormat))

		data, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, local, data)
	})

	t.Run("missing remote repository fails", func(t *testing.T) {
		transport := &fakeTransport{user: "alice"}
		c, _ := newCoordinator(t, transport, nil, nil)

		err := c.Restore(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no backup repository")
	})

	t.Run("clone failure leaves local untouched", func(t *testing.T) {
		local := []byte(`[{"id":"p0","name":"Local"}]`)
		transport := &fakeTransport{user: "alice", exists: true, failOn: "clone"}
		prompter := &fakePrompter{decision: Proceed}
		c, path := newCoordinator(t, transport, prompter, local)

		err := c.Restore(context.Background())
		assert.Error(t, err)

		data, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, local, data)
	})

	t.Run("non-empty local without prompter refuses", func(t *testing.T) {
		transport := &fakeTransport{user: "alice", exists: true, remoteBlob: remote}
		c, _ := newCoordinator(t, transport, nil, []byte(`[{"id":"p0"}]`))

		err := c.Restore(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "without confirmation")
	})
}

func TestNewConfigValidation(t *testing.T) {
	_, err := New(Config{StorePath: "x"})
	assert.Error(t, err)

	_, err = New(Config{Transport: &fakeTransport{}})
	assert.Error(t, err)

	c, err := New(Config{Transport: &fakeTransport{}, StorePath: "x"})
	require.NoError(t, err)
	assert.Equal(t, "tryenv-backup", c.cfg.RepoName)
	assert.Equal(t, "private", c.cfg.Visibility)
	assert.Equal(t, "main", c.cfg.Branch)
}

func TestProgressCallback(t *testing.T) {
	transport := &fakeTransport{user: "alice", exists: true}
	path := filepath.Join(t.TempDir(), "tryenv.json")

	var stages []string
	c, err := New(Config{
		Transport: transport,
		StorePath: path,
		Progress:  func(stage string) { stages = append(stages, stage) },
	})
	require.NoError(t, err)

	require.NoError(t, c.Backup(context.Background()))
	assert.Equal(t, []string{"authenticating", "preparing remote repository", "committing snapshot", "pushing to remote"}, stages)
}
