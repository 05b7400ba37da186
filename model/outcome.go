package model

// StepFailure is one failed timeline record together with the diagnosis
// the engine could attach to it. Log content is only resolved for root
// causes; hierarchy failures keep a nil excerpt.
type StepFailure struct {
	// The failed timeline record
	Record TimelineRecord `json:"record"`
	// Tail of the step's log, nil when no log was resolved
	LogExcerpt *string `json:"log_excerpt,omitempty"`
	// True when the excerpt was truncated to the configured line limit
	LogTruncated bool `json:"log_truncated,omitempty"`
	// Best-effort classification of the failure ("non-zero exit",
	// "timeout", ...), extracted heuristically from the log text.
	// Never required for correctness.
	ErrorSignature string `json:"error_signature,omitempty"`
	// Error and warning messages the remote system attached to the record
	Issues []string `json:"issues,omitempty"`
}

// FailureSummary partitions the failed records of one run into root causes
// and cascading hierarchy failures. Remote CI systems mark every ancestor
// stage and job as failed when a single task fails; without this partition
// a caller would see N failed records for one real defect.
type FailureSummary struct {
	// Failed records with no failed descendant: the actual points of failure
	RootCauses []StepFailure `json:"root_causes"`
	// Failed records that failed only because a descendant failed
	HierarchyFailures []StepFailure `json:"hierarchy_failures"`
	// Total number of failed records in the timeline
	TotalFailedRecords int `json:"total_failed_records"`
}

// PipelineOutcome is the consolidated result of triggering a run, waiting
// for it, and diagnosing it on failure.
type PipelineOutcome struct {
	// Last observed state of the run
	Run Run `json:"run"`
	// True only when the run completed with a succeeded result
	Success bool `json:"success"`
	// Failure diagnosis, nil on success or timeout
	FailureSummary *FailureSummary `json:"failure_summary,omitempty"`
	// finishedDate - createdDate when available, else wall-clock wait time
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	// True when the run did not reach a terminal state within the budget
	TimedOut bool `json:"timed_out,omitempty"`
}
