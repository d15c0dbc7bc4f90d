// Package sync moves the persisted project collection to and from a
// remote git-hosted backup. The collection travels as one opaque blob:
// backup overwrites the remote copy wholesale, restore overwrites the
// local copy wholesale after an explicit confirmation. There is no
// per-project or per-variable reconciliation.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tryenv "github.com/tryEnv-xyz/tryEnv"
)

// BlobFileName is the name of the collection file inside the backup
// repository.
const BlobFileName = "tryenv.json"

// ErrCancelled is returned when the user declines the restore
// confirmation. The local store is left untouched.
var ErrCancelled = errors.New("sync: cancelled by user")

// Transport is the narrow interface over the external git/hosting client.
// Every call blocks on an external command; failures carry the command's
// diagnostic output.
type Transport interface {
	// AuthStatus reports whether the client is authenticated.
	AuthStatus(ctx context.Context) error
	// CurrentUser returns the authenticated username.
	CurrentUser(ctx context.Context) (string, error)
	// RemoteExists reports whether owner/name exists on the host.
	RemoteExists(ctx context.Context, owner, name string) (bool, error)
	// CreateRemote creates a repository with the given visibility
	// ("private" or "public") under the authenticated user.
	CreateRemote(ctx context.Context, name, visibility string) error
	// RemoteURL renders the clone/push URL for owner/name.
	RemoteURL(owner, name string) string
	// InitRepo initializes a fresh repository in dir.
	InitRepo(ctx context.Context, dir string) error
	// LinkRemote points dir's origin at url.
	LinkRemote(ctx context.Context, dir, url string) error
	// Stage stages file (relative to dir) for commit.
	Stage(ctx context.Context, dir, file string) error
	// Commit records the staged changes.
	Commit(ctx context.Context, dir, message string) error
	// ForcePush pushes branch to remote, overwriting remote history.
	ForcePush(ctx context.Context, dir, remote, branch string) error
	// Clone clones url into dir.
	Clone(ctx context.Context, url, dir string) error
}

// Decision is the user's answer to the restore overwrite warning.
type Decision int

const (
	// BackupFirst runs a full backup before restoring.
	BackupFirst Decision = iota
	// Proceed restores immediately, discarding local data.
	Proceed
	// Cancel aborts the restore with no side effects.
	Cancel
)

// Prompter obtains the overwrite decision from the user before a restore
// replaces a non-empty local collection.
type Prompter interface {
	ConfirmOverwrite(ctx context.Context, projects int) (Decision, error)
}

// Config configures a Coordinator.
type Config struct {
	Transport  Transport
	Prompter   Prompter
	StorePath  string // local collection file
	RepoName   string // backup repository name, default "tryenv-backup"
	Visibility string // repository visibility on creation, default "private"
	Branch     string // branch to push/clone, default "main"
	Logger     *slog.Logger
	// Progress, when set, receives a short description of each step as it
	// starts. Long-running external commands make these operations take
	// seconds; the callback keeps an observer informed in the meantime.
	Progress func(stage string)
}

// Coordinator orchestrates backup and restore against the remote copy.
type Coordinator struct {
	cfg Config
}

// New validates cfg, applies defaults, and returns a Coordinator.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("sync: transport is required")
	}
	if cfg.StorePath == "" {
		return nil, fmt.Errorf("sync: store path is required")
	}
	if cfg.RepoName == "" {
		cfg.RepoName = "tryenv-backup"
	}
	if cfg.Visibility == "" {
		cfg.Visibility = "private"
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Coordinator{cfg: cfg}, nil
}

// Backup pushes the local collection to the remote repository,
// overwriting whatever is there. The blob is committed from a throwaway
// workspace so a failed push leaves nothing behind; any step failure
// aborts the whole operation with that step's diagnostic.
func (c *Coordinator) Backup(ctx context.Context) error {
	c.step("authenticating")
	if err := c.cfg.Transport.AuthStatus(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	user, err := c.cfg.Transport.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("resolving user: %w", err)
	}

	c.step("preparing remote repository")
	exists, err := c.cfg.Transport.RemoteExists(ctx, user, c.cfg.RepoName)
	if err != nil {
		return fmt.Errorf("checking remote repository: %w", err)
	}
	if !exists {
		c.cfg.Logger.Info("creating backup repository", "repo", c.cfg.RepoName, "visibility", c.cfg.Visibility)
		if err := c.cfg.Transport.CreateRemote(ctx, c.cfg.RepoName, c.cfg.Visibility); err != nil {
			return fmt.Errorf("creating remote repository: %w", err)
		}
	}

	data, err := os.ReadFile(c.cfg.StorePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading local store: %w", err)
		}
		// Nothing stored yet still backs up as an empty collection.
		data = []byte("[]\n")
	}

	workspace, err := os.MkdirTemp("", "tryenv-backup-*")
	if err != nil {
		return fmt.Errorf("creating backup workspace: %w", err)
	}
	defer os.RemoveAll(workspace)

	c.step("committing snapshot")
	if err := c.cfg.Transport.InitRepo(ctx, workspace); err != nil {
		return fmt.Errorf("initializing workspace: %w", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, BlobFileName), data, 0o600); err != nil {
		return fmt.Errorf("staging local store: %w", err)
	}
	url := c.cfg.Transport.RemoteURL(user, c.cfg.RepoName)
	if err := c.cfg.Transport.LinkRemote(ctx, workspace, url); err != nil {
		return fmt.Errorf("linking remote: %w", err)
	}
	if err := c.cfg.Transport.Stage(ctx, workspace, BlobFileName); err != nil {
		return fmt.Errorf("staging snapshot: %w", err)
	}
	message := "tryenv backup " + time.Now().UTC().Format(time.RFC3339)
	if err := c.cfg.Transport.Commit(ctx, workspace, message); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}

	c.step("pushing to remote")
	if err := c.cfg.Transport.ForcePush(ctx, workspace, "origin", c.cfg.Branch); err != nil {
		return fmt.Errorf("pushing snapshot: %w", err)
	}

	c.cfg.Logger.Info("backup complete", "repo", user+"/"+c.cfg.RepoName)
	return nil
}

// Restore replaces the local collection with the remote copy. If the
// local collection is non-empty the user must pick between backing up
// first, proceeding anyway, or cancelling. The fetched blob must parse as
// a project array before it is installed; on any failure the local file
// is left exactly as it was. The clone workspace is removed on every
// exit path.
func (c *Coordinator) Restore(ctx context.Context) error {
	c.step("authenticating")
	if err := c.cfg.Transport.AuthStatus(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	local, err := c.countLocalProjects()
	if err != nil {
		return err
	}
	if local > 0 {
		if c.cfg.Prompter == nil {
			return fmt.Errorf("sync: refusing to overwrite %d local projects without confirmation", local)
		}
		decision, err := c.cfg.Prompter.ConfirmOverwrite(ctx, local)
		if err != nil {
			return fmt.Errorf("overwrite confirmation: %w", err)
		}
		switch decision {
		case Cancel:
			return ErrCancelled
		case BackupFirst:
			if err := c.Backup(ctx); err != nil {
				return fmt.Errorf("pre-restore backup: %w", err)
			}
		case Proceed:
		}
	}

	user, err := c.cfg.Transport.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("resolving user: %w", err)
	}
	exists, err := c.cfg.Transport.RemoteExists(ctx, user, c.cfg.RepoName)
	if err != nil {
		return fmt.Errorf("checking remote repository: %w", err)
	}
	if !exists {
		return fmt.Errorf("no backup repository %s/%s found", user, c.cfg.RepoName)
	}

	workspace, err := os.MkdirTemp("", "tryenv-restore-*")
	if err != nil {
		return fmt.Errorf("creating restore workspace: %w", err)
	}
	defer os.RemoveAll(workspace)

	c.step("fetching remote copy")
	url := c.cfg.Transport.RemoteURL(user, c.cfg.RepoName)
	if err := c.cfg.Transport.Clone(ctx, url, workspace); err != nil {
		return fmt.Errorf("cloning backup: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(workspace, BlobFileName))
	if err != nil {
		return fmt.Errorf("backup repository has no %s: %w", BlobFileName, err)
	}

	c.step("validating remote copy")
	if err := tryenv.ValidateCollection(data); err != nil {
		return fmt.Errorf("remote copy rejected: %w", err)
	}

	c.step("installing")
	if err := installBlob(c.cfg.StorePath, data); err != nil {
		return err
	}

	c.cfg.Logger.Info("restore complete", "repo", user+"/"+c.cfg.RepoName)
	return nil
}

// installBlob replaces the local store file in one rename so a failure
// mid-write never leaves a truncated store behind.
func installBlob(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("installing store: %w", err)
	}
	return nil
}

// countLocalProjects reads the local blob without interpreting records.
// A missing file counts as empty.
func (c *Coordinator) countLocalProjects() (int, error) {
	data, err := os.ReadFile(c.cfg.StorePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading local store: %w", err)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("%w: %v", tryenv.ErrFormat, err)
	}
	return len(records), nil
}

func (c *Coordinator) step(stage string) {
	c.cfg.Logger.Debug("sync step", "stage", stage)
	if c.cfg.Progress != nil {
		c.cfg.Progress(stage)
	}
}
