package timeline

import (
	"github.com/pipewatch/pipewatch/model"
)

// Classify partitions the failed records of a timeline into root causes
// and hierarchy failures.
//
// A failed record with no failed descendant is a root cause: the actual
// point of failure. A failed record with at least one failed descendant
// failed only as a consequence of something below it. Both lists come
// back in depth-first, sibling-order traversal order, so classifying the
// same timeline twice yields identical output.
func Classify(t *Timeline) model.FailureSummary {
	summary := model.FailureSummary{
		RootCauses:        []model.StepFailure{},
		HierarchyFailures: []model.StepFailure{},
	}

	t.Walk(func(rec *model.TimelineRecord, depth int) {
		if !rec.Failed() {
			return
		}
		summary.TotalFailedRecords++

		failure := model.StepFailure{
			Record: *rec,
			Issues: issueMessages(rec.Issues),
		}

		// A record aborted mid-run with no children still counts as a
		// leaf: absence of children is not evidence of non-leaf status.
		if hasFailedDescendant(t, rec.ID) {
			summary.HierarchyFailures = append(summary.HierarchyFailures, failure)
		} else {
			summary.RootCauses = append(summary.RootCauses, failure)
		}
	})

	return summary
}

// hasFailedDescendant reports whether any record below id failed.
func hasFailedDescendant(t *Timeline, id string) bool {
	for _, child := range t.Children(id) {
		rec := t.Record(child)
		if rec.Failed() || hasFailedDescendant(t, child) {
			return true
		}
	}
	return false
}

func issueMessages(issues []model.Issue) []string {
	if len(issues) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(issues))
	for _, issue := range issues {
		if issue.Message != "" {
			msgs = append(msgs, issue.Message)
		}
	}
	return msgs
}
