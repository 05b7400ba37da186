package cli

// This file contains the read-only commands for inspecting an existing
// run: timeline, failures and logs.

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func (a *App) timeline(ctx *cli.Context) error {
	eng, cfg, err := a.setup(ctx)
	if err != nil {
		return err
	}
	project, _, err := target(cfg, false)
	if err != nil {
		return err
	}
	runID := ctx.Int("run")

	tl, err := eng.GetPipelineTimeline(ctx.Context, project, runID)
	if err != nil {
		return fmt.Errorf("failed to fetch timeline for run %d: %w", runID, err)
	}

	if tl.Len() == 0 {
		fmt.Printf("No timeline records for run %d\n", runID)
		return nil
	}

	fmt.Printf("\n=== Timeline for run %d (%d records) ===\n\n", runID, tl.Len())
	renderTimeline(os.Stdout, tl)
	return nil
}

func (a *App) failures(ctx *cli.Context) error {
	eng, cfg, err := a.setup(ctx)
	if err != nil {
		return err
	}
	project, pipelineID, err := target(cfg, true)
	if err != nil {
		return err
	}
	runID := ctx.Int("run")

	summary, err := eng.GetFailureSummary(ctx.Context, project, pipelineID, runID)
	if err != nil {
		return fmt.Errorf("failed to analyze run %d: %w", runID, err)
	}

	printSummary(os.Stdout, summary)
	return nil
}

func (a *App) logs(ctx *cli.Context) error {
	eng, cfg, err := a.setup(ctx)
	if err != nil {
		return err
	}
	project, pipelineID, err := target(cfg, true)
	if err != nil {
		return err
	}
	runID := ctx.Int("run")
	filter := ctx.String("step")

	failures, err := eng.GetFailedStepLogs(ctx.Context, project, pipelineID, runID, filter)
	if err != nil {
		return fmt.Errorf("failed to fetch step logs for run %d: %w", runID, err)
	}

	if len(failures) == 0 {
		if filter != "" {
			fmt.Printf("No failed steps matching %q in run %d\n", filter, runID)
		} else {
			fmt.Printf("No failed steps in run %d\n", runID)
		}
		return nil
	}

	for i := range failures {
		printFailure(os.Stdout, &failures[i])
	}
	return nil
}
