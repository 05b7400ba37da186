package engine

// Package engine orchestrates pipeline outcome requests: trigger a run,
// wait for it to reach a terminal state under a timeout, and on failure
// walk the execution timeline to separate root-cause failures from
// cascading hierarchy failures, resolving logs for the root causes only.

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pipewatch/pipewatch/model"
)

// RunService is the remote run-control and reporting collaborator the
// engine consumes. *azdo.Client satisfies it; tests substitute fakes.
// Implementations must be safe for concurrent use.
type RunService interface {
	TriggerRun(ctx context.Context, project string, pipelineID int, req model.RunRequest) (*model.Run, error)
	GetRun(ctx context.Context, project string, pipelineID, runID int) (*model.Run, error)
	GetTimeline(ctx context.Context, project string, runID int) ([]model.TimelineRecord, error)
	ListLogs(ctx context.Context, project string, pipelineID, runID int) (*model.LogCollection, error)
	GetLogContent(ctx context.Context, project string, pipelineID, runID, logID int) (content string, truncated bool, err error)
}

const (
	defaultPollInterval   = 10 * time.Second
	defaultMaxLogLines    = 100
	defaultLogConcurrency = 4
)

// Engine runs outcome requests against one remote organization. It holds
// no cross-request mutable state; concurrent requests only share the
// underlying service.
type Engine struct {
	logger         zerolog.Logger
	service        RunService
	clock          Clock
	pollInterval   time.Duration
	maxLogLines    int
	logConcurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the system clock; tests inject fakes to fast-forward
// past poll intervals and timeouts.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithPollInterval sets the delay between run-state polls.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// WithMaxLogLines bounds resolved log excerpts to the last n lines.
// Zero or negative means unlimited.
func WithMaxLogLines(n int) Option {
	return func(e *Engine) {
		e.maxLogLines = n
	}
}

// WithLogConcurrency caps parallel log-content fetches within one
// failure analysis.
func WithLogConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.logConcurrency = n
		}
	}
}

// New creates an Engine on top of the given remote service.
func New(logger zerolog.Logger, service RunService, opts ...Option) *Engine {
	e := &Engine{
		logger:         logger,
		service:        service,
		clock:          systemClock{},
		pollInterval:   defaultPollInterval,
		maxLogLines:    defaultMaxLogLines,
		logConcurrency: defaultLogConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
