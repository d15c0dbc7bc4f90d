package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tryEnv-xyz/tryEnv/pkg/audit"
	syncpkg "github.com/tryEnv-xyz/tryEnv/pkg/sync"
)

type RestoreCmd struct {
	Repo string `help:"Backup repository name (overrides config)"`
	Yes  bool   `help:"Overwrite local data without prompting" short:"y"`
}

func (c *RestoreCmd) Run(ctx *cliCtx) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}

	var prompter syncpkg.Prompter = &terminalPrompter{in: os.Stdin}
	if c.Yes {
		prompter = proceedPrompter{}
	}
	coordinator, err := newCoordinator(ctx, app, c.Repo, prompter)
	if err != nil {
		return err
	}

	if err := coordinator.Restore(ctx.Context); err != nil {
		if errors.Is(err, syncpkg.ErrCancelled) {
			fmt.Println("Restore cancelled, local data unchanged.")
			return nil
		}
		return err
	}
	app.recordAudit(audit.Entry{Op: "restore"})
	fmt.Println("Restore complete.")
	return nil
}

// terminalPrompter asks on stdin before local data is overwritten.
type terminalPrompter struct {
	in io.Reader
}

func (p *terminalPrompter) ConfirmOverwrite(_ context.Context, projects int) (syncpkg.Decision, error) {
	fmt.Printf("Restoring will overwrite %d local project(s).\n", projects)
	fmt.Print("[b]ackup first, [p]roceed anyway, or [c]ancel? ")

	reader := bufio.NewReader(p.in)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return syncpkg.Cancel, fmt.Errorf("reading answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "b", "backup":
		return syncpkg.BackupFirst, nil
	case "p", "proceed":
		return syncpkg.Proceed, nil
	case "c", "cancel", "":
		return syncpkg.Cancel, nil
	default:
		fmt.Println("Unrecognized answer, cancelling.")
		return syncpkg.Cancel, nil
	}
}

// proceedPrompter implements --yes.
type proceedPrompter struct{}

func (proceedPrompter) ConfirmOverwrite(context.Context, int) (syncpkg.Decision, error) {
	return syncpkg.Proceed, nil
}
