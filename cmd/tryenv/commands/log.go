package commands

import (
	"fmt"
	"strings"

	"github.com/tryEnv-xyz/tryEnv/pkg/audit"
)

type LogCmd struct {
	Count int `help:"Number of entries to show" short:"n" default:"20"`
}

func (c *LogCmd) Run(ctx *cliCtx) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}

	log, err := audit.Open(app.cfg.AuditPath())
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer log.Close()

	entries, err := log.Recent(c.Count)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No recorded operations yet.")
		return nil
	}

	for _, e := range entries {
		parts := []string{e.Timestamp, e.Op}
		if e.Project != "" {
			parts = append(parts, e.Project)
		}
		if e.Instance != "" {
			parts = append(parts, e.Instance)
		}
		if e.Key != "" {
			parts = append(parts, e.Key)
		}
		if e.Detail != "" {
			parts = append(parts, "("+e.Detail+")")
		}
		fmt.Println(strings.Join(parts, "  "))
	}
	return nil
}
