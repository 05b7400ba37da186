package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pipewatch/pipewatch/model"
	"github.com/pipewatch/pipewatch/timeline"
)

// GetPipelineTimeline fetches the flat timeline for a run and builds the
// execution tree from it.
func (e *Engine) GetPipelineTimeline(ctx context.Context, project string, runID int) (*timeline.Timeline, error) {
	records, err := e.service.GetTimeline(ctx, project, runID)
	if err != nil {
		return nil, err
	}
	return timeline.Build(e.logger, records), nil
}

// GetFailureSummary classifies the failures of a run and resolves log
// excerpts for the root causes. Log trouble degrades to nil excerpts;
// only a timeline fetch failure is fatal.
func (e *Engine) GetFailureSummary(ctx context.Context, project string, pipelineID, runID int) (*model.FailureSummary, error) {
	return e.failureSummary(ctx, project, pipelineID, runID, "")
}

func (e *Engine) failureSummary(ctx context.Context, project string, pipelineID, runID int, nameFilter string) (*model.FailureSummary, error) {
	tl, err := e.GetPipelineTimeline(ctx, project, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze run %d: %w", runID, err)
	}

	summary := timeline.Classify(tl)

	e.logger.Info().
		Int("run_id", runID).
		Int("failed_records", summary.TotalFailedRecords).
		Int("root_causes", len(summary.RootCauses)).
		Int("hierarchy_failures", len(summary.HierarchyFailures)).
		Msg("Classified pipeline failures")

	if len(summary.RootCauses) > 0 {
		// The log collection is advisory: without it the resolver still
		// works through per-log metadata.
		logs, err := e.service.ListLogs(ctx, project, pipelineID, runID)
		if err != nil {
			e.logger.Warn().Err(err).Int("run_id", runID).Msg("Failed to list logs, resolving without collection")
			logs = nil
		}
		e.resolveRootCauseLogs(ctx, project, pipelineID, runID, &summary, logs, nameFilter)
	}

	return &summary, nil
}

// GetFailedStepLogs returns every failed step of a run with log excerpts
// resolved for the root causes, optionally filtered by a case-insensitive
// substring match on the step name. Root causes come first, then
// hierarchy failures, each in timeline traversal order.
func (e *Engine) GetFailedStepLogs(ctx context.Context, project string, pipelineID, runID int, stepNameFilter string) ([]model.StepFailure, error) {
	summary, err := e.failureSummary(ctx, project, pipelineID, runID, stepNameFilter)
	if err != nil {
		return nil, err
	}

	all := make([]model.StepFailure, 0, len(summary.RootCauses)+len(summary.HierarchyFailures))
	all = append(all, summary.RootCauses...)
	all = append(all, summary.HierarchyFailures...)

	if stepNameFilter == "" {
		return all, nil
	}
	filtered := make([]model.StepFailure, 0, len(all))
	for _, failure := range all {
		if nameMatches(failure.Record.Name, stepNameFilter) {
			filtered = append(filtered, failure)
		}
	}
	e.logger.Info().
		Int("run_id", runID).
		Str("filter", stepNameFilter).
		Int("matched", len(filtered)).
		Msg("Filtered failed steps by name")
	return filtered, nil
}

// RunAndGetOutcome triggers a pipeline run, waits for it to complete
// under the timeout, and returns one consolidated outcome.
//
// A timeout is reported through the outcome, never as an error: the run
// has not reached a terminal state, so classification is not meaningful
// yet. Failure analysis itself degrades to a nil summary rather than
// failing a request that already has a terminal run to report.
func (e *Engine) RunAndGetOutcome(ctx context.Context, project string, pipelineID int, req model.RunRequest, timeout time.Duration) (*model.PipelineOutcome, error) {
	logger := e.logger.With().Str("request_id", uuid.NewString()).Logger()
	scoped := *e
	scoped.logger = logger
	start := e.clock.Now()

	run, err := scoped.service.TriggerRun(ctx, project, pipelineID, req)
	if err != nil {
		return nil, err
	}

	final, timedOut, err := scoped.WaitForCompletion(ctx, project, pipelineID, run.ID, timeout)
	if err != nil {
		return nil, err
	}

	outcome := &model.PipelineOutcome{
		Run:                  *final,
		TimedOut:             timedOut,
		ExecutionTimeSeconds: executionSeconds(final, start, e.clock.Now()),
	}

	if timedOut {
		logger.Warn().
			Int("run_id", final.ID).
			Msg("Returning timed-out outcome without failure analysis")
		return outcome, nil
	}

	outcome.Success = final.IsSuccessful()
	if outcome.Success {
		logger.Info().
			Int("run_id", final.ID).
			Float64("execution_seconds", outcome.ExecutionTimeSeconds).
			Msg("Pipeline run succeeded")
		return outcome, nil
	}

	summary, err := scoped.GetFailureSummary(ctx, project, pipelineID, final.ID)
	if err != nil {
		logger.Warn().
			Err(err).
			Int("run_id", final.ID).
			Msg("Could not retrieve failure summary")
	} else {
		outcome.FailureSummary = summary
	}

	logger.Info().
		Int("run_id", final.ID).
		Str("result", string(final.Result)).
		Float64("execution_seconds", outcome.ExecutionTimeSeconds).
		Msg("Pipeline run finished")

	return outcome, nil
}

// executionSeconds prefers the remote system's own timestamps and falls
// back to the wall-clock duration of the wait.
func executionSeconds(run *model.Run, start, end time.Time) float64 {
	if run.FinishedDate != nil && !run.CreatedDate.IsZero() {
		return run.FinishedDate.Sub(run.CreatedDate).Seconds()
	}
	return end.Sub(start).Seconds()
}
