package commands

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	tryenv "github.com/tryEnv-xyz/tryEnv"
)

type RunCmd struct {
	Project  string   `help:"Project name or id" short:"p" required:""`
	Instance string   `help:"Instance (preview, development, production)" short:"i" default:"development"`
	Command  []string `arg:"" name:"command" help:"Command to run with the instance's variables in its environment"`
}

func (c *RunCmd) Run(ctx *cliCtx) error {
	if len(c.Command) == 0 {
		return fmt.Errorf("no command specified to run")
	}

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	kind, err := tryenv.ParseInstance(c.Instance)
	if err != nil {
		return err
	}
	p, err := app.resolveProject(c.Project)
	if err != nil {
		return err
	}

	vars, err := tryenv.DecryptInstance(app.store, p.ID, kind)
	if err != nil {
		return err
	}
	if len(vars) == 0 {
		ctx.Logger.Debug("no variables in instance", "project", p.Name, "instance", kind)
	}

	ctx.Logger.Debug("executing command", "command", strings.Join(c.Command, " "), "vars", len(vars))

	cmd := exec.Command(c.Command[0], c.Command[1:]...)
	cmd.Env = os.Environ()
	for k, v := range vars {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		return fmt.Errorf("error running command: %v", err)
	}
	return nil
}
