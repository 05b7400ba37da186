package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pipewatch/pipewatch/azdo"
	"github.com/pipewatch/pipewatch/model"
)

// ErrPollingFailed marks retry-budget exhaustion while observing a run.
// It is distinct from a timeout, which is not an error at all.
var ErrPollingFailed = errors.New("polling failed")

// WaitForCompletion polls a run at the configured interval until it
// reaches a terminal state or the timeout elapses. It returns the last
// observed run and whether the wait timed out.
//
// A timeout is a first-class outcome, not an error: the poller simply
// stops observing. It never attempts to cancel the remote run; that is a
// separate operation left to the caller. Transient fetch errors are
// retried inside the service client; once that budget is exhausted the
// wait fails with ErrPollingFailed.
func (e *Engine) WaitForCompletion(ctx context.Context, project string, pipelineID, runID int, timeout time.Duration) (*model.Run, bool, error) {
	deadline := e.clock.Now().Add(timeout)

	e.logger.Info().
		Int("run_id", runID).
		Dur("timeout", timeout).
		Msg("Waiting for pipeline run to complete")

	for {
		run, err := e.service.GetRun(ctx, project, pipelineID, runID)
		if err != nil {
			if azdo.IsInvalidInput(err) {
				return nil, false, err
			}
			return nil, false, fmt.Errorf("%w: run %d: %w", ErrPollingFailed, runID, err)
		}

		if run.IsCompleted() {
			e.logger.Info().
				Int("run_id", runID).
				Str("result", string(run.Result)).
				Msg("Pipeline run completed")
			return run, false, nil
		}

		if !e.clock.Now().Before(deadline) {
			e.logger.Warn().
				Int("run_id", runID).
				Dur("timeout", timeout).
				Str("state", string(run.State)).
				Msg("Pipeline run did not complete within timeout")
			return run, true, nil
		}

		e.logger.Debug().
			Int("run_id", runID).
			Str("state", string(run.State)).
			Msg("Pipeline run still in progress")

		if err := e.clock.Sleep(ctx, e.pollInterval); err != nil {
			return run, false, err
		}
	}
}
