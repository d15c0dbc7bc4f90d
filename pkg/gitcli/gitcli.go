// Package gitcli implements the sync transport by shelling out to the
// gh and git binaries. Authentication, repository creation, and all
// network traffic are delegated to those tools; this package only builds
// argv lines and captures their output.
package gitcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// CommandError is a failed external command invocation. Output holds the
// command's combined stdout/stderr verbatim; that text is the diagnostic
// surfaced to the user.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	detail := strings.TrimSpace(e.Output)
	if detail == "" {
		detail = e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", strings.Join(e.Args, " "), detail)
}

func (e *CommandError) Unwrap() error { return e.Err }

// runner executes one external command in dir (empty for the current
// directory) and returns its combined output. Swappable in tests.
type runner func(ctx context.Context, dir, name string, args ...string) (string, error)

// Client shells out to gh for hosting operations and git for repository
// operations.
type Client struct {
	GhBin  string
	GitBin string

	logger *slog.Logger
	run    runner
}

// New returns a Client using the gh and git binaries from PATH.
func New(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		GhBin:  "gh",
		GitBin: "git",
		logger: logger,
		run:    runCommand,
	}
}

func runCommand(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), &CommandError{
			Args:   append([]string{name}, args...),
			Output: string(out),
			Err:    err,
		}
	}
	return string(out), nil
}

// AuthStatus reports whether gh holds valid credentials.
func (c *Client) AuthStatus(ctx context.Context) error {
	out, err := c.run(ctx, "", c.GhBin, "auth", "status")
	c.logger.Debug("gh auth status", "output", strings.TrimSpace(out))
	return err
}

// CurrentUser returns the login of the authenticated gh user.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "", c.GhBin, "api", "user", "-q", ".login")
	if err != nil {
		return "", err
	}
	user := strings.TrimSpace(out)
	if user == "" {
		return "", fmt.Errorf("gh returned an empty username")
	}
	return user, nil
}

// RemoteExists reports whether owner/name resolves on the host. Only a
// lookup that gh answers with "not found" counts as missing; any other
// failure (network, rate limit, expired credentials) propagates so the
// caller surfaces the real diagnostic instead of trying to create a
// repository that may already exist.
func (c *Client) RemoteExists(ctx context.Context, owner, name string) (bool, error) {
	out, err := c.run(ctx, "", c.GhBin, "repo", "view", owner+"/"+name)
	if err == nil {
		return true, nil
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && isNotFoundOutput(cmdErr.Output) {
		c.logger.Debug("repo not found", "repo", owner+"/"+name, "output", strings.TrimSpace(out))
		return false, nil
	}
	return false, err
}

// isNotFoundOutput matches gh's not-found diagnostics for repo lookups,
// from both its GraphQL and REST paths.
func isNotFoundOutput(output string) bool {
	return strings.Contains(output, "Could not resolve to a Repository") ||
		strings.Contains(output, "HTTP 404")
}

// CreateRemote creates a repository under the authenticated user.
func (c *Client) CreateRemote(ctx context.Context, name, visibility string) error {
	_, err := c.run(ctx, "", c.GhBin, "repo", "create", name, "--"+visibility)
	return err
}

// RemoteURL renders the HTTPS clone URL for owner/name.
func (c *Client) RemoteURL(owner, name string) string {
	return fmt.Sprintf("https://github.com/%s/%s.git", owner, name)
}

// InitRepo initializes a fresh git repository in dir.
func (c *Client) InitRepo(ctx context.Context, dir string) error {
	_, err := c.run(ctx, dir, c.GitBin, "init")
	return err
}

// LinkRemote points dir's origin at url.
func (c *Client) LinkRemote(ctx context.Context, dir, url string) error {
	_, err := c.run(ctx, dir, c.GitBin, "remote", "add", "origin", url)
	return err
}

// Stage stages file for commit.
func (c *Client) Stage(ctx context.Context, dir, file string) error {
	_, err := c.run(ctx, dir, c.GitBin, "add", file)
	return err
}

// Commit records the staged changes. Identity is pinned so commits work
// on machines without a global git config.
func (c *Client) Commit(ctx context.Context, dir, message string) error {
	_, err := c.run(ctx, dir, c.GitBin,
		"-c", "user.name=tryenv",
		"-c", "user.email=tryenv@localhost",
		"commit", "-m", message)
	return err
}

// ForcePush pushes the current HEAD to remote/branch, overwriting remote
// history.
func (c *Client) ForcePush(ctx context.Context, dir, remote, branch string) error {
	_, err := c.run(ctx, dir, c.GitBin, "push", "--force", remote, "HEAD:refs/heads/"+branch)
	return err
}

// Clone clones url into dir.
func (c *Client) Clone(ctx context.Context, url, dir string) error {
	_, err := c.run(ctx, "", c.GitBin, "clone", "--depth", "1", url, dir)
	return err
}
