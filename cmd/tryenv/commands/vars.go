package commands

import (
	"fmt"
	"sort"

	tryenv "github.com/tryEnv-xyz/tryEnv"
	"github.com/tryEnv-xyz/tryEnv/pkg/audit"
)

type SetCmd struct {
	Project  string `help:"Project name or id" short:"p" required:""`
	Instance string `help:"Instance (preview, development, production)" short:"i" default:"development"`
	Key      string `arg:"" help:"Variable name"`
	Value    string `arg:"" help:"Variable value (encrypted at rest)"`
}

func (c *SetCmd) Run(ctx *cliCtx) error {
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
	if err := app.store.SetVariable(p.ID, kind, c.Key, c.Value); err != nil {
		return err
	}
	app.recordAudit(audit.Entry{Op: "set-variable", Project: p.Name, Instance: string(kind), Key: c.Key})
	fmt.Printf("Set %s in %s/%s\n", c.Key, p.Name, kind)
	return nil
}

type GetCmd struct {
	Project  string `help:"Project name or id" short:"p" required:""`
	Instance string `help:"Instance (preview, development, production)" short:"i" default:"development"`
	Key      string `arg:"" help:"Variable name"`
}

func (c *GetCmd) Run(ctx *cliCtx) error {
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
	value, err := app.store.GetVariable(p.ID, kind, c.Key)
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

type UnsetCmd struct {
	Project  string `help:"Project name or id" short:"p" required:""`
	Instance string `help:"Instance (preview, development, production)" short:"i" default:"development"`
	Key      string `arg:"" help:"Variable name"`
}

func (c *UnsetCmd) Run(ctx *cliCtx) error {
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
	if err := app.store.DeleteVariable(p.ID, kind, c.Key); err != nil {
		return err
	}
	app.recordAudit(audit.Entry{Op: "unset-variable", Project: p.Name, Instance: string(kind), Key: c.Key})
	fmt.Printf("Removed %s from %s/%s\n", c.Key, p.Name, kind)
	return nil
}

type ListCmd struct {
	Project  string `help:"Project name or id" short:"p" required:""`
	Instance string `help:"Instance to list; omit for all three" short:"i"`
	Values   bool   `help:"Decrypt and show values" short:"v"`
}

func (c *ListCmd) Run(ctx *cliCtx) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	p, err := app.resolveProject(c.Project)
	if err != nil {
		return err
	}

	kinds := tryenv.Instances()
	if c.Instance != "" {
		kind, err := tryenv.ParseInstance(c.Instance)
		if err != nil {
			return err
		}
		kinds = []tryenv.InstanceKind{kind}
	}

	for _, kind := range kinds {
		vars, _ := p.Instances.Vars(kind)
		fmt.Printf("%s (%d)\n", kind, len(vars))

		keys := make([]string, 0, len(vars))
		for key := range vars {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			if c.Values {
				value, err := app.store.GetVariable(p.ID, kind, key)
				if err != nil {
					return err
				}
				fmt.Printf("  %s=%s\n", key, value)
			} else {
				fmt.Printf("  %s\n", key)
			}
		}
	}
	return nil
}
