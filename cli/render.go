package cli

// This file contains the text rendering for outcomes, failure summaries
// and execution trees.

import (
	"fmt"
	"io"
	"strings"

	"github.com/pipewatch/pipewatch/model"
	"github.com/pipewatch/pipewatch/timeline"
)

// statusGlyph maps a record's result to a one-character marker.
func statusGlyph(rec *model.TimelineRecord) string {
	switch rec.Result {
	case model.RecordResultSucceeded:
		return "✓"
	case model.RecordResultFailed:
		return "✗"
	case model.RecordResultSkipped:
		return "-"
	case model.RecordResultCanceled:
		return "⊘"
	}
	if rec.State == model.RecordStateInProgress {
		return "→"
	}
	return "·"
}

// renderTimeline writes the execution tree in traversal order, indented
// by hierarchy depth.
func renderTimeline(w io.Writer, tl *timeline.Timeline) {
	tl.Walk(func(rec *model.TimelineRecord, depth int) {
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(w, "%s%s [%s] %s", indent, statusGlyph(rec), rec.Type, rec.Name)
		if rec.Result != model.RecordResultNone {
			fmt.Fprintf(w, " (%s)", rec.Result)
		} else if rec.State != "" {
			fmt.Fprintf(w, " (%s)", rec.State)
		}
		fmt.Fprintln(w)
	})
}

func printOutcome(w io.Writer, outcome *model.PipelineOutcome) {
	run := outcome.Run

	fmt.Fprintf(w, "\n=== Run %d", run.ID)
	if run.Name != "" {
		fmt.Fprintf(w, " (%s)", run.Name)
	}
	fmt.Fprintf(w, " ===\n")

	switch {
	case outcome.TimedOut:
		fmt.Fprintf(w, "Status: timed out, last state %s\n", run.State)
	case outcome.Success:
		fmt.Fprintf(w, "Status: succeeded\n")
	default:
		fmt.Fprintf(w, "Status: %s\n", run.Result)
	}
	fmt.Fprintf(w, "Execution time: %.1fs\n", outcome.ExecutionTimeSeconds)
	if run.URL != "" {
		fmt.Fprintf(w, "URL: %s\n", run.URL)
	}

	if outcome.FailureSummary != nil {
		printSummary(w, outcome.FailureSummary)
	}
}

func printSummary(w io.Writer, summary *model.FailureSummary) {
	if summary.TotalFailedRecords == 0 {
		fmt.Fprintln(w, "\nNo failed records")
		return
	}

	fmt.Fprintf(w, "\n%d failed record(s): %d root cause(s), %d hierarchy failure(s)\n",
		summary.TotalFailedRecords, len(summary.RootCauses), len(summary.HierarchyFailures))

	if len(summary.RootCauses) > 0 {
		fmt.Fprintln(w, "\n--- Root causes ---")
		for i := range summary.RootCauses {
			printFailure(w, &summary.RootCauses[i])
		}
	}
	if len(summary.HierarchyFailures) > 0 {
		fmt.Fprintln(w, "\n--- Failed because of descendants ---")
		for i := range summary.HierarchyFailures {
			rec := summary.HierarchyFailures[i].Record
			fmt.Fprintf(w, "  ✗ [%s] %s\n", rec.Type, rec.Name)
		}
	}
}

func printFailure(w io.Writer, failure *model.StepFailure) {
	rec := failure.Record

	fmt.Fprintf(w, "\n✗ [%s] %s", rec.Type, rec.Name)
	if failure.ErrorSignature != "" {
		fmt.Fprintf(w, "  (%s)", failure.ErrorSignature)
	}
	fmt.Fprintln(w)

	for _, issue := range failure.Issues {
		fmt.Fprintf(w, "  issue: %s\n", issue)
	}

	if failure.LogExcerpt != nil {
		if failure.LogTruncated {
			fmt.Fprintln(w, "  log (truncated):")
		} else {
			fmt.Fprintln(w, "  log:")
		}
		for _, line := range strings.Split(*failure.LogExcerpt, "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}
