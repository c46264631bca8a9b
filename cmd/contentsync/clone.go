package main

import (
	"encoding/json"
	"fmt"

	"github.com/fwojciec/contentsync"
	"github.com/fwojciec/contentsync/clone"
)

// Run executes the clone command.
func (c *CloneCmd) Run(deps *Dependencies) error {
	cloner := *deps.Cloner
	cloner.Concurrency = c.Concurrency

	report, err := cloner.CloneBatch(deps.Ctx, c.IDs, c.Lang, deps.Progress)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", contentsync.ErrorMessage(err))
		return err
	}

	if c.JSON {
		if err := printJSON(deps, report); err != nil {
			return err
		}
	} else {
		for _, p := range report.Success {
			fmt.Fprintf(deps.Stdout, "Cloned %d -> %d\n", p.OriginalID, p.CloneID)
		}
		for _, f := range report.Failed {
			fmt.Fprintf(deps.Stdout, "Failed %d: %s\n", f.ID, f.Reason)
		}
		fmt.Fprintf(deps.Stdout, "%d cloned, %d failed\n", len(report.Success), len(report.Failed))
	}

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d items failed", len(report.Failed), report.Len())
	}
	return nil
}

// Run executes the sync command.
func (c *SyncCmd) Run(deps *Dependencies) error {
	report, err := deps.Cloner.SyncGroup(deps.Ctx, c.ID, clone.SyncOptions{Force: c.Force}, deps.Progress)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", contentsync.ErrorMessage(err))
		return err
	}

	if c.JSON {
		if err := printJSON(deps, report); err != nil {
			return err
		}
	} else {
		for _, id := range report.Synced {
			fmt.Fprintf(deps.Stdout, "Synced %d\n", id)
		}
		for _, f := range report.Failed {
			fmt.Fprintf(deps.Stdout, "Failed %d: %s\n", f.ID, f.Reason)
		}
		fmt.Fprintf(deps.Stdout, "%d synced, %d skipped, %d failed\n", len(report.Synced), len(report.Skipped), len(report.Failed))
	}

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d siblings failed to sync", len(report.Failed))
	}
	return nil
}

func printJSON(deps *Dependencies, v any) error {
	enc := json.NewEncoder(deps.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
