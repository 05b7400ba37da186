package cli

// This file contains the show command for displaying a recorded outcome
// from history.

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pipewatch/pipewatch/history"
)

func parseShowArg(in []string) string {
	if len(in) == 0 {
		return "0"
	}
	return in[0]
}

func (a *App) show(ctx *cli.Context) error {
	arg := parseShowArg(ctx.Args().Slice())

	root, err := history.Root()
	if err != nil {
		return err
	}

	entries, err := history.LoadEntries(a.logger, root)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("no recorded outcomes found")
	}

	// Sort by timestamp (newest first)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Record.Timestamp.After(entries[j].Record.Timestamp)
	})

	entry, err := selectEntry(entries, arg)
	if err != nil {
		return err
	}

	rec := entry.Record
	fmt.Printf("=== Recorded outcome: %s ===\n", rec.ID[:8])
	fmt.Printf("Time: %s\n", rec.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("Pipeline: %s/%d\n", rec.Project, rec.PipelineID)
	if len(rec.Args) > 1 {
		fmt.Printf("Args: %s\n", strings.Join(rec.Args[1:], " "))
	}
	fmt.Printf("Path: %s\n", entry.FullPath)

	printOutcome(os.Stdout, &rec.Outcome)
	return nil
}

// selectEntry resolves the show argument against entries sorted newest
// first: 0 or a negative index counts from the end, anything else is a
// hex ID prefix.
func selectEntry(entries []history.Entry, arg string) (*history.Entry, error) {
	if parsed, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if parsed > 0 {
			return nil, fmt.Errorf("invalid index: %s (use 0 for last, -1 for second-to-last, etc.)", arg)
		}
		index := int(-parsed)
		if index >= len(entries) {
			return nil, fmt.Errorf("index %s out of range (only %d recorded outcomes)", arg, len(entries))
		}
		return &entries[index], nil
	}

	hexID := strings.ToLower(arg)
	for i := range entries {
		if strings.HasPrefix(strings.ToLower(entries[i].Record.ID), hexID) {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("no recorded outcome found matching ID: %s", arg)
}
