package commands

import (
	"fmt"

	"github.com/tryEnv-xyz/tryEnv/pkg/audit"
)

type ProjectCmd struct {
	Create ProjectCreateCmd `cmd:"" help:"Create a project"`
	Rename ProjectRenameCmd `cmd:"" help:"Rename a project"`
	Delete ProjectDeleteCmd `cmd:"" help:"Delete a project and all its variables"`
	List   ProjectListCmd   `cmd:"" help:"List projects"`
}

type ProjectCreateCmd struct {
	Name string `arg:"" help:"Project display name"`
}

func (c *ProjectCreateCmd) Run(ctx *cliCtx) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	p, err := app.store.CreateProject(c.Name)
	if err != nil {
		return err
	}
	app.recordAudit(audit.Entry{Op: "project-create", Project: p.Name})
	fmt.Printf("Created project %q (%s)\n", p.Name, p.ID)
	return nil
}

type ProjectRenameCmd struct {
	Project string `arg:"" help:"Project name or id"`
	NewName string `arg:"" help:"New display name"`
}

func (c *ProjectRenameCmd) Run(ctx *cliCtx) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	p, err := app.resolveProject(c.Project)
	if err != nil {
		return err
	}
	if err := app.store.RenameProject(p.ID, c.NewName); err != nil {
		return err
	}
	app.recordAudit(audit.Entry{Op: "project-rename", Project: c.NewName, Detail: "was " + c.Project})
	fmt.Printf("Renamed project to %q\n", c.NewName)
	return nil
}

type ProjectDeleteCmd struct {
	Project string `arg:"" help:"Project name or id"`
}

func (c *ProjectDeleteCmd) Run(ctx *cliCtx) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	p, err := app.resolveProject(c.Project)
	if err != nil {
		return err
	}
	if err := app.store.DeleteProject(p.ID); err != nil {
		return err
	}
	app.recordAudit(audit.Entry{Op: "project-delete", Project: p.Name})
	fmt.Printf("Deleted project %q\n", p.Name)
	return nil
}

type ProjectListCmd struct{}

func (c *ProjectListCmd) Run(ctx *cliCtx) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	projects := app.store.Projects()
	if len(projects) == 0 {
		fmt.Println("No projects yet. Create one with 'tryenv project create <name>'.")
		return nil
	}
	for _, p := range projects {
		fmt.Printf("%s  %s\n", p.ID, p.Name)
	}
	return nil
}
