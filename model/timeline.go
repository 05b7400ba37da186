package model

import "time"

// RecordType tags a timeline record with its position in the execution
// hierarchy. Classification behavior is identical across types; the tag
// only matters for display.
type RecordType string

const (
	RecordTypeStage      RecordType = "Stage"
	RecordTypePhase      RecordType = "Phase"
	RecordTypeJob        RecordType = "Job"
	RecordTypeTask       RecordType = "Task"
	RecordTypeCheckpoint RecordType = "Checkpoint"
	RecordTypeOther      RecordType = "Other"
)

// RecordState represents the execution state of a timeline record.
type RecordState string

const (
	RecordStatePending    RecordState = "pending"
	RecordStateInProgress RecordState = "inProgress"
	RecordStateCompleted  RecordState = "completed"
)

// RecordResult represents the result of a timeline record.
type RecordResult string

const (
	RecordResultNone      RecordResult = ""
	RecordResultSucceeded RecordResult = "succeeded"
	RecordResultFailed    RecordResult = "failed"
	RecordResultSkipped   RecordResult = "skipped"
	RecordResultCanceled  RecordResult = "canceled"
)

// LogReference points a timeline record at its entry in the run's log
// collection.
type LogReference struct {
	ID  int    `json:"id"`
	URL string `json:"url,omitempty"`
}

// Issue is an error or warning message attached to a timeline record by
// the remote system.
type Issue struct {
	Type     string `json:"type,omitempty"` // error or warning
	Category string `json:"category,omitempty"`
	Message  string `json:"message,omitempty"`
}

// TimelineRecord is one node in the execution hierarchy of a run (a stage,
// phase, job, task or checkpoint). Depth is unbounded; the hierarchy is
// expressed through ParentID alone.
type TimelineRecord struct {
	// Opaque ID, unique within a run
	ID string `json:"id"`
	// ID of the parent record, empty for roots
	ParentID string `json:"parentId,omitempty"`
	// Hierarchy tag (Stage, Phase, Job, Task, Checkpoint)
	Type RecordType `json:"type,omitempty"`
	// Display name
	Name string `json:"name,omitempty"`
	// Execution state
	State RecordState `json:"state,omitempty"`
	// Result, empty while pending or in progress
	Result RecordResult `json:"result,omitempty"`
	// Sibling ordering hint; not guaranteed unique
	Order int `json:"order,omitempty"`
	// Reference into the run's log collection, nil if no log was produced
	Log *LogReference `json:"log,omitempty"`
	// Error and warning messages attached by the remote system
	Issues []Issue `json:"issues,omitempty"`
	// Timestamps, nil until the record starts/finishes
	StartTime  *time.Time `json:"startTime,omitempty"`
	FinishTime *time.Time `json:"finishTime,omitempty"`
}

// Failed reports whether this record ended with a failed result.
func (r *TimelineRecord) Failed() bool {
	return r.Result == RecordResultFailed
}

// LogID returns the log collection entry ID for this record, or 0 if the
// record produced no log.
func (r *TimelineRecord) LogID() int {
	if r.Log == nil {
		return 0
	}
	return r.Log.ID
}

// TimelineResponse is the remote system's flat timeline representation:
// an unordered list of records related only through parent IDs.
type TimelineResponse struct {
	ID       string           `json:"id,omitempty"`
	ChangeID int              `json:"changeId,omitempty"`
	URL      string           `json:"url,omitempty"`
	Records  []TimelineRecord `json:"records"`
}
