package model

import "time"

// RunState represents the lifecycle state of a pipeline run.
type RunState string

const (
	RunStateUnknown    RunState = "unknown"
	RunStateInProgress RunState = "inProgress"
	RunStateCanceling  RunState = "canceling"
	RunStateCompleted  RunState = "completed"
)

// RunResult represents the final result of a pipeline run. It is only
// meaningful once the run has reached the completed state.
type RunResult string

const (
	RunResultNone               RunResult = ""
	RunResultSucceeded          RunResult = "succeeded"
	RunResultFailed             RunResult = "failed"
	RunResultCanceled           RunResult = "canceled"
	RunResultPartiallySucceeded RunResult = "partiallySucceeded"
)

// PipelineReference identifies the pipeline definition a run belongs to.
type PipelineReference struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Run represents one execution instance of a pipeline definition.
// Runs are never mutated locally; the remote system is the single source
// of truth and callers always re-fetch to observe state changes.
type Run struct {
	// Unique ID for this run (unique per pipeline)
	ID int `json:"id"`
	// Human-readable run name assigned by the remote system
	Name string `json:"name,omitempty"`
	// Current lifecycle state
	State RunState `json:"state,omitempty"`
	// Final result, empty until the run completes
	Result RunResult `json:"result,omitempty"`
	// Timestamp when the run was created
	CreatedDate time.Time `json:"createdDate,omitempty"`
	// Timestamp when the run finished, nil until completed
	FinishedDate *time.Time `json:"finishedDate,omitempty"`
	// Pipeline definition this run was created from
	Pipeline *PipelineReference `json:"pipeline,omitempty"`
	// Web URL for the run
	URL string `json:"url,omitempty"`
}

// IsCompleted reports whether the run has reached a terminal state.
func (r *Run) IsCompleted() bool {
	return r.State == RunStateCompleted
}

// IsSuccessful reports whether the run completed with a succeeded result.
func (r *Run) IsSuccessful() bool {
	return r.IsCompleted() && r.Result == RunResultSucceeded
}

// PipelineID returns the pipeline definition ID, or 0 if unknown.
func (r *Run) PipelineID() int {
	if r.Pipeline == nil {
		return 0
	}
	return r.Pipeline.ID
}

// RunRequest carries the optional parameters for triggering a run.
type RunRequest struct {
	// Pipeline variables to set for this run
	Variables map[string]string `json:"variables,omitempty"`
	// Template parameters passed to the pipeline YAML
	TemplateParameters map[string]string `json:"templateParameters,omitempty"`
	// Resource overrides (repositories, pipelines) for this run
	Resources map[string]any `json:"resources,omitempty"`
	// Stages to skip in this run
	StagesToSkip []string `json:"stagesToSkip,omitempty"`
	// Branch to run against (e.g. "refs/heads/main")
	Branch string `json:"-"`
}
