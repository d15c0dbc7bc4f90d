package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	tryenv "github.com/tryEnv-xyz/tryEnv"
	"github.com/tryEnv-xyz/tryEnv/pkg/audit"
	"github.com/tryEnv-xyz/tryEnv/pkg/config"
)

type cliCtx struct {
	Debug  bool
	Logger *slog.Logger
	context.Context
}

type cli struct {
	Project ProjectCmd `cmd:"" help:"Manage projects"`
	Set     SetCmd     `cmd:"" help:"Set a variable"`
	Get     GetCmd     `cmd:"" help:"Print a variable's decrypted value"`
	Unset   UnsetCmd   `cmd:"" help:"Remove a variable"`
	List    ListCmd    `cmd:"" help:"List a project's variables"`
	Import  ImportCmd  `cmd:"" help:"Bulk-import variables from dotenv-style text"`
	Export  ExportCmd  `cmd:"" help:"Export an instance's variables as dotenv text"`
	Run     RunCmd     `cmd:"" help:"Run a command with an instance's variables in its environment"`
	Backup  BackupCmd  `cmd:"" help:"Push the local store to the remote backup repository"`
	Restore RestoreCmd `cmd:"" help:"Replace the local store with the remote backup"`
	Log     LogCmd     `cmd:"" help:"Show recent store operations"`

	Debug   bool             `help:"Enable debug logging" short:"D"`
	Version kong.VersionFlag `help:"Show version"`
}

func Execute(version string) {
	var cli cli
	ctx := kong.Parse(&cli,
		kong.UsageOnError(),
		kong.Name("tryenv"),
		kong.Description("tryenv stores per-project secret variables, encrypted at rest, with git-hosted backup"),
		kong.Vars{"version": version},
	)

	level := slog.LevelInfo
	if cli.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	err := ctx.Run(&cliCtx{
		Debug:   cli.Debug,
		Logger:  logger,
		Context: context.Background(),
	})
	ctx.FatalIfErrorf(err)
}

// app bundles the loaded configuration and store for one command
// invocation.
type app struct {
	cfg    config.Config
	store  *tryenv.Store
	logger *slog.Logger
}

func openApp(ctx *cliCtx) (*app, error) {
	cfg, err := config.Load(ctx.Logger)
	if err != nil {
		return nil, err
	}
	store := tryenv.NewStore(cfg.StorePath(), ctx.Logger)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return &app{cfg: cfg, store: store, logger: ctx.Logger}, nil
}

// resolveProject accepts either a project id or a project name. Names are
// not unique, so an ambiguous name is an error rather than a guess.
func (a *app) resolveProject(nameOrID string) (*tryenv.Project, error) {
	if p, ok := a.store.Project(nameOrID); ok {
		return p, nil
	}

	var matches []*tryenv.Project
	for _, p := range a.store.Projects() {
		if p.Name == nameOrID {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: no project named %q", tryenv.ErrNotFound, nameOrID)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%d projects are named %q, use the project id instead", len(matches), nameOrID)
	}
}

// recordAudit appends a mutation record, best-effort. Failing to log
// never fails the operation.
func (a *app) recordAudit(entry audit.Entry) {
	log, err := audit.Open(a.cfg.AuditPath())
	if err != nil {
		a.logger.Debug("audit log unavailable", "error", err)
		return
	}
	defer log.Close()
	if err := log.Append(entry); err != nil {
		a.logger.Debug("audit append failed", "error", err)
	}
}
