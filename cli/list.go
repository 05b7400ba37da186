package cli

// This file contains the list command for displaying recorded outcomes.

import (
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pipewatch/pipewatch/history"
)

func (a *App) list(ctx *cli.Context) error {
	filterProject := ctx.String("project")
	limit := ctx.Int("limit")

	root, err := history.Root()
	if err != nil {
		return err
	}

	entries, err := history.LoadEntries(a.logger, root)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	// Apply project filter if specified
	var filtered []history.Entry
	for _, entry := range entries {
		if filterProject == "" || strings.EqualFold(entry.Record.Project, filterProject) {
			filtered = append(filtered, entry)
		}
	}

	if len(filtered) == 0 {
		if filterProject != "" {
			fmt.Printf("No recorded outcomes found for project: %s\n", filterProject)
		} else {
			fmt.Println("No recorded outcomes found")
		}
		return nil
	}

	// Sort by timestamp (newest first)
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Record.Timestamp.After(filtered[j].Record.Timestamp)
	})

	display := filtered
	if limit > 0 && limit < len(display) {
		display = display[:limit]
	}

	fmt.Printf("\n=== History (%d total) ===\n\n", len(filtered))

	for _, entry := range display {
		rec := entry.Record
		timestamp := rec.Timestamp.Format("2006-01-02 15:04:05")

		status := "✓"
		switch {
		case rec.Outcome.TimedOut:
			status = "?"
		case !rec.Outcome.Success:
			status = "✗"
		}

		shortID := rec.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}

		fmt.Printf("%s  %s  [%.1fs]  run=%d  id=%s\n",
			status, timestamp, rec.Outcome.ExecutionTimeSeconds, rec.Outcome.Run.ID, shortID)
		fmt.Printf("   Pipeline: %s/%d\n", rec.Project, rec.PipelineID)
		if summary := rec.Outcome.FailureSummary; summary != nil {
			fmt.Printf("   Failures: %d failed, %d root cause(s)\n",
				summary.TotalFailedRecords, len(summary.RootCauses))
		}
		fmt.Printf("   %s\n", entry.FullPath)
		fmt.Println()
	}

	fmt.Println("\nShow an outcome: pipewatch show <ID>")

	return nil
}
