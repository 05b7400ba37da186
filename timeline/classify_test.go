package timeline

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pipewatch/pipewatch/model"
)

func names(failures []model.StepFailure) []string {
	out := make([]string, 0, len(failures))
	for _, f := range failures {
		out = append(out, f.Record.Name)
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		records       []model.TimelineRecord
		wantRoot      []string
		wantHierarchy []string
	}{
		{
			name: "single failure chain",
			records: []model.TimelineRecord{
				rec("A", "", model.RecordTypeStage, model.RecordResultFailed, 1),
				rec("B", "A", model.RecordTypeJob, model.RecordResultFailed, 1),
				rec("C", "B", model.RecordTypeTask, model.RecordResultFailed, 1),
			},
			wantRoot:      []string{"C"},
			wantHierarchy: []string{"A", "B"},
		},
		{
			name: "failed job next to succeeded sibling",
			records: []model.TimelineRecord{
				rec("A", "", model.RecordTypeStage, model.RecordResultFailed, 1),
				rec("B1", "A", model.RecordTypeJob, model.RecordResultFailed, 1),
				rec("B2", "A", model.RecordTypeJob, model.RecordResultSucceeded, 2),
			},
			wantRoot:      []string{"B1"},
			wantHierarchy: []string{"A"},
		},
		{
			name: "single flat failure",
			records: []model.TimelineRecord{
				rec("X", "", model.RecordTypeTask, model.RecordResultFailed, 1),
			},
			wantRoot:      []string{"X"},
			wantHierarchy: []string{},
		},
		{
			name: "two sibling task failures under one job",
			records: []model.TimelineRecord{
				rec("job", "", model.RecordTypeJob, model.RecordResultFailed, 1),
				rec("task-1", "job", model.RecordTypeTask, model.RecordResultFailed, 1),
				rec("task-2", "job", model.RecordTypeTask, model.RecordResultFailed, 2),
			},
			wantRoot:      []string{"task-1", "task-2"},
			wantHierarchy: []string{"job"},
		},
		{
			name: "failed job over skipped and canceled children",
			records: []model.TimelineRecord{
				rec("job", "", model.RecordTypeJob, model.RecordResultFailed, 1),
				rec("skipped", "job", model.RecordTypeTask, model.RecordResultSkipped, 1),
				rec("canceled", "job", model.RecordTypeTask, model.RecordResultCanceled, 2),
			},
			wantRoot:      []string{"job"},
			wantHierarchy: []string{},
		},
		{
			name: "no failures",
			records: []model.TimelineRecord{
				rec("stage", "", model.RecordTypeStage, model.RecordResultSucceeded, 1),
				rec("job", "stage", model.RecordTypeJob, model.RecordResultSucceeded, 1),
			},
			wantRoot:      []string{},
			wantHierarchy: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := Build(zerolog.Nop(), tt.records)
			summary := Classify(tl)

			require.Equal(t, tt.wantRoot, names(summary.RootCauses))
			require.Equal(t, tt.wantHierarchy, names(summary.HierarchyFailures))
			require.Equal(t, len(tt.wantRoot)+len(tt.wantHierarchy), summary.TotalFailedRecords)
		})
	}
}

func TestClassify_AbortedLeafIsRootCause(t *testing.T) {
	aborted := rec("aborted", "", model.RecordTypeTask, model.RecordResultFailed, 1)
	aborted.State = model.RecordStateInProgress

	summary := Classify(Build(zerolog.Nop(), []model.TimelineRecord{aborted}))

	require.Equal(t, []string{"aborted"}, names(summary.RootCauses))
	require.Empty(t, summary.HierarchyFailures)
}

func TestClassify_IssuesCarriedOntoFailure(t *testing.T) {
	failed := rec("task", "", model.RecordTypeTask, model.RecordResultFailed, 1)
	failed.Issues = []model.Issue{
		{Type: "error", Message: "Bash exited with code '1'."},
		{Type: "warning", Message: ""},
	}

	summary := Classify(Build(zerolog.Nop(), []model.TimelineRecord{failed}))

	require.Len(t, summary.RootCauses, 1)
	require.Equal(t, []string{"Bash exited with code '1'."}, summary.RootCauses[0].Issues)
}

// Every failed record lands in exactly one of the two sets, and repeated
// classification of the same timeline is byte-for-byte identical.
func TestClassify_PartitionAndDeterminism(t *testing.T) {
	// A wider synthetic tree: 4 stages, each with jobs and tasks, with a
	// mix of results.
	var records []model.TimelineRecord
	results := []model.RecordResult{
		model.RecordResultFailed,
		model.RecordResultSucceeded,
		model.RecordResultSkipped,
	}
	for s := 0; s < 4; s++ {
		stageID := uuid.NewString()
		records = append(records, model.TimelineRecord{
			ID: stageID, Type: model.RecordTypeStage,
			Name:   fmt.Sprintf("stage-%d", s),
			Result: results[s%len(results)],
			Order:  s,
		})
		for j := 0; j < 3; j++ {
			jobID := uuid.NewString()
			records = append(records, model.TimelineRecord{
				ID: jobID, ParentID: stageID, Type: model.RecordTypeJob,
				Name:   fmt.Sprintf("job-%d-%d", s, j),
				Result: results[(s+j)%len(results)],
				Order:  j,
			})
			for k := 0; k < 2; k++ {
				records = append(records, model.TimelineRecord{
					ID: uuid.NewString(), ParentID: jobID, Type: model.RecordTypeTask,
					Name:   fmt.Sprintf("task-%d-%d-%d", s, j, k),
					Result: results[(s+j+k)%len(results)],
					Order:  k,
				})
			}
		}
	}

	tl := Build(zerolog.Nop(), records)
	first := Classify(tl)
	second := Classify(tl)

	require.Equal(t, first, second)

	inRoot := map[string]bool{}
	for _, f := range first.RootCauses {
		inRoot[f.Record.ID] = true
	}
	for _, f := range first.HierarchyFailures {
		require.Falsef(t, inRoot[f.Record.ID], "record %s in both sets", f.Record.Name)
	}

	failedCount := 0
	tl.Walk(func(r *model.TimelineRecord, depth int) {
		if r.Failed() {
			failedCount++
		}
	})
	require.Equal(t, failedCount, first.TotalFailedRecords)
	require.Equal(t, failedCount, len(first.RootCauses)+len(first.HierarchyFailures))
}
