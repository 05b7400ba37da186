package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pipewatch/pipewatch/model"
	"github.com/pipewatch/pipewatch/timeline"
)

func TestRenderTimeline(t *testing.T) {
	records := []model.TimelineRecord{
		{ID: "s", Type: model.RecordTypeStage, Name: "Build", Result: model.RecordResultFailed, Order: 1},
		{ID: "j", ParentID: "s", Type: model.RecordTypeJob, Name: "Compile job", Result: model.RecordResultFailed, Order: 1},
		{ID: "t1", ParentID: "j", Type: model.RecordTypeTask, Name: "Checkout", Result: model.RecordResultSucceeded, Order: 1},
		{ID: "t2", ParentID: "j", Type: model.RecordTypeTask, Name: "Compile", Result: model.RecordResultFailed, Order: 2},
	}
	tl := timeline.Build(zerolog.Nop(), records)

	var buf bytes.Buffer
	renderTimeline(&buf, tl)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Equal(t, []string{
		"✗ [Stage] Build (failed)",
		"  ✗ [Job] Compile job (failed)",
		"    ✓ [Task] Checkout (succeeded)",
		"    ✗ [Task] Compile (failed)",
	}, lines)
}

func TestPrintOutcome_TimedOut(t *testing.T) {
	var buf bytes.Buffer
	printOutcome(&buf, &model.PipelineOutcome{
		Run:                  model.Run{ID: 42, State: model.RunStateInProgress},
		TimedOut:             true,
		ExecutionTimeSeconds: 300,
	})

	out := buf.String()
	require.Contains(t, out, "Run 42")
	require.Contains(t, out, "timed out")
	require.Contains(t, out, "300.0s")
}

func TestPrintOutcome_FailureSummary(t *testing.T) {
	excerpt := "##[error]Bash exited with code '1'."
	var buf bytes.Buffer
	printOutcome(&buf, &model.PipelineOutcome{
		Run:     model.Run{ID: 42, State: model.RunStateCompleted, Result: model.RunResultFailed},
		Success: false,
		FailureSummary: &model.FailureSummary{
			RootCauses: []model.StepFailure{
				{
					Record:         model.TimelineRecord{Type: model.RecordTypeTask, Name: "Compile"},
					LogExcerpt:     &excerpt,
					LogTruncated:   true,
					ErrorSignature: "non-zero exit",
				},
			},
			HierarchyFailures: []model.StepFailure{
				{Record: model.TimelineRecord{Type: model.RecordTypeStage, Name: "Build"}},
			},
			TotalFailedRecords: 2,
		},
	})

	out := buf.String()
	require.Contains(t, out, "2 failed record(s): 1 root cause(s), 1 hierarchy failure(s)")
	require.Contains(t, out, "✗ [Task] Compile  (non-zero exit)")
	require.Contains(t, out, "log (truncated):")
	require.Contains(t, out, "    ##[error]Bash exited with code '1'.")
	require.Contains(t, out, "✗ [Stage] Build")
	// Hierarchy failures never carry log content
	require.Equal(t, 1, strings.Count(out, "log (truncated):"))
}
