package commands

import (
	"fmt"
	"io"
	"os"

	tryenv "github.com/tryEnv-xyz/tryEnv"
	"github.com/tryEnv-xyz/tryEnv/pkg/audit"
)

type ImportCmd struct {
	Project  string `help:"Project name or id" short:"p" required:""`
	Instance string `help:"Instance (preview, development, production)" short:"i" default:"development"`
	File     string `arg:"" optional:"" help:"Dotenv-style file to import; reads stdin when omitted"`
}

func (c *ImportCmd) Run(ctx *cliCtx) error {
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

	var data []byte
	if c.File == "" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(c.File)
		if err != nil {
			return fmt.Errorf("reading %q: %w", c.File, err)
		}
	}

	entries, err := tryenv.ParseBulk(data)
	if err != nil {
		return fmt.Errorf("parsing import data: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("Nothing to import.")
		return nil
	}

	applied, err := app.store.BulkSetVariables(p.ID, kind, entries)
	app.recordAudit(audit.Entry{
		Op:       "bulk-import",
		Project:  p.Name,
		Instance: string(kind),
		Detail:   fmt.Sprintf("%d of %d entries", applied, len(entries)),
	})
	fmt.Printf("Imported %d of %d variables into %s/%s\n", applied, len(entries), p.Name, kind)
	if err != nil {
		return fmt.Errorf("some entries were skipped: %w", err)
	}
	return nil
}

type ExportCmd struct {
	Project  string `help:"Project name or id" short:"p" required:""`
	Instance string `help:"Instance (preview, development, production)" short:"i" default:"development"`
	Output   string `help:"Write to file instead of stdout" short:"o"`
}

func (c *ExportCmd) Run(ctx *cliCtx) error {
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

	out, err := tryenv.ExportDotenv(app.store, p.ID, kind)
	if err != nil {
		return err
	}
	if c.Output == "" {
		fmt.Print(out)
		return nil
	}
	if err := os.WriteFile(c.Output, []byte(out), 0o600); err != nil {
		return fmt.Errorf("writing %q: %w", c.Output, err)
	}
	fmt.Printf("Exported %s/%s to %s\n", p.Name, kind, c.Output)
	return nil
}
