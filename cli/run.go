package cli

// This file contains the run command: trigger a pipeline run, wait for
// it to complete and report the consolidated outcome.

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pipewatch/pipewatch/history"
	"github.com/pipewatch/pipewatch/model"
)

func (a *App) run(ctx *cli.Context) error {
	eng, cfg, err := a.setup(ctx)
	if err != nil {
		return err
	}
	project, pipelineID, err := target(cfg, true)
	if err != nil {
		return err
	}

	req, err := buildRunRequest(ctx)
	if err != nil {
		return err
	}

	startTime := time.Now()

	a.logger.Info().
		Str("project", project).
		Int("pipeline_id", pipelineID).
		Dur("timeout", ctx.Duration("timeout")).
		Msg("Triggering pipeline run")

	outcome, err := eng.RunAndGetOutcome(ctx.Context, project, pipelineID, req, ctx.Duration("timeout"))
	if err != nil {
		return fmt.Errorf("failed to run pipeline %d: %w", pipelineID, err)
	}

	if !ctx.Bool("no-record") {
		a.recordOutcome(startTime, project, pipelineID, outcome)
	}

	printOutcome(os.Stdout, outcome)

	if !outcome.Success {
		return cli.Exit("", 1)
	}
	return nil
}

func (a *App) wait(ctx *cli.Context) error {
	eng, cfg, err := a.setup(ctx)
	if err != nil {
		return err
	}
	project, pipelineID, err := target(cfg, true)
	if err != nil {
		return err
	}
	runID := ctx.Int("run")

	run, timedOut, err := eng.WaitForCompletion(ctx.Context, project, pipelineID, runID, ctx.Duration("timeout"))
	if err != nil {
		return fmt.Errorf("failed to wait for run %d: %w", runID, err)
	}

	outcome := &model.PipelineOutcome{
		Run:      *run,
		TimedOut: timedOut,
	}
	if run.FinishedDate != nil && !run.CreatedDate.IsZero() {
		outcome.ExecutionTimeSeconds = run.FinishedDate.Sub(run.CreatedDate).Seconds()
	}
	if !timedOut {
		outcome.Success = run.IsSuccessful()
		if !outcome.Success {
			summary, err := eng.GetFailureSummary(ctx.Context, project, pipelineID, runID)
			if err != nil {
				a.logger.Warn().Err(err).Int("run_id", runID).Msg("Could not retrieve failure summary")
			} else {
				outcome.FailureSummary = summary
			}
		}
	}

	printOutcome(os.Stdout, outcome)

	if !outcome.Success {
		return cli.Exit("", 1)
	}
	return nil
}

// buildRunRequest translates the run command's flags into a trigger
// request.
func buildRunRequest(ctx *cli.Context) (model.RunRequest, error) {
	vars, err := parseKeyValues(ctx.StringSlice("var"))
	if err != nil {
		return model.RunRequest{}, fmt.Errorf("invalid --var: %w", err)
	}
	params, err := parseKeyValues(ctx.StringSlice("template-param"))
	if err != nil {
		return model.RunRequest{}, fmt.Errorf("invalid --template-param: %w", err)
	}
	return model.RunRequest{
		Variables:          vars,
		TemplateParameters: params,
		StagesToSkip:       ctx.StringSlice("skip-stage"),
		Branch:             ctx.String("branch"),
	}, nil
}

// parseKeyValues parses repeated key=value pairs. Values may contain
// further "=" characters; keys may not be empty.
func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		out[key] = value
	}
	return out, nil
}

// recordOutcome saves the outcome to local history. Failures are logged
// and never fail the command.
func (a *App) recordOutcome(start time.Time, project string, pipelineID int, outcome *model.PipelineOutcome) {
	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to generate record ID")
		return
	}

	root, err := history.Root()
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to locate history root")
		return
	}

	rec := history.Record{
		ID:         hex.EncodeToString(idBytes),
		Timestamp:  start,
		Args:       os.Args,
		Project:    project,
		PipelineID: pipelineID,
		Outcome:    *outcome,
	}
	if _, err := history.Save(a.logger, root, rec); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to record outcome")
	}
}
