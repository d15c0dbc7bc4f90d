package commands

import (
	"fmt"

	"github.com/tryEnv-xyz/tryEnv/pkg/audit"
	"github.com/tryEnv-xyz/tryEnv/pkg/gitcli"
	syncpkg "github.com/tryEnv-xyz/tryEnv/pkg/sync"
)

type BackupCmd struct {
	Repo string `help:"Backup repository name (overrides config)"`
}

func (c *BackupCmd) Run(ctx *cliCtx) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	coordinator, err := newCoordinator(ctx, app, c.Repo, nil)
	if err != nil {
		return err
	}

	if err := coordinator.Backup(ctx.Context); err != nil {
		return err
	}
	app.recordAudit(audit.Entry{Op: "backup"})
	fmt.Println("Backup complete.")
	return nil
}

func newCoordinator(ctx *cliCtx, app *app, repoOverride string, prompter syncpkg.Prompter) (*syncpkg.Coordinator, error) {
	repo := app.cfg.BackupRepo
	if repoOverride != "" {
		repo = repoOverride
	}
	return syncpkg.New(syncpkg.Config{
		Transport:  gitcli.New(ctx.Logger),
		Prompter:   prompter,
		StorePath:  app.cfg.StorePath(),
		RepoName:   repo,
		Visibility: app.cfg.Visibility,
		Branch:     app.cfg.Branch,
		Logger:     ctx.Logger,
		Progress:   func(stage string) { fmt.Println(stage + "...") },
	})
}
