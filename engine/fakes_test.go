package engine

import (
	"context"
	"sync"
	"time"

	"github.com/pipewatch/pipewatch/model"
)

// fakeClock fast-forwards through sleeps so poll loops run without real
// delays.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

// fakeService scripts the remote system's responses.
type fakeService struct {
	mu sync.Mutex

	triggered *model.Run
	// Successive GetRun responses; the last one repeats once exhausted.
	runs    []model.Run
	runErr  error
	records []model.TimelineRecord
	logs    *model.LogCollection
	logsErr error
	content map[int]string
	// Per-log fetch errors
	contentErr map[int]error

	getRunCalls   int
	timelineCalls int
	contentCalls  int
}

func (s *fakeService) TriggerRun(ctx context.Context, project string, pipelineID int, req model.RunRequest) (*model.Run, error) {
	run := *s.triggered
	return &run, nil
}

func (s *fakeService) GetRun(ctx context.Context, project string, pipelineID, runID int) (*model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runErr != nil {
		return nil, s.runErr
	}
	i := s.getRunCalls
	s.getRunCalls++
	if i >= len(s.runs) {
		i = len(s.runs) - 1
	}
	run := s.runs[i]
	return &run, nil
}

func (s *fakeService) GetTimeline(ctx context.Context, project string, runID int) ([]model.TimelineRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timelineCalls++
	return s.records, nil
}

func (s *fakeService) ListLogs(ctx context.Context, project string, pipelineID, runID int) (*model.LogCollection, error) {
	if s.logsErr != nil {
		return nil, s.logsErr
	}
	if s.logs != nil {
		return s.logs, nil
	}
	// Default: a collection containing every log the content map knows.
	collection := &model.LogCollection{}
	for id := range s.content {
		collection.Logs = append(collection.Logs, model.LogEntry{ID: id})
	}
	for id := range s.contentErr {
		collection.Logs = append(collection.Logs, model.LogEntry{ID: id})
	}
	return collection, nil
}

func (s *fakeService) GetLogContent(ctx context.Context, project string, pipelineID, runID, logID int) (string, bool, error) {
	s.mu.Lock()
	s.contentCalls++
	s.mu.Unlock()
	if err := s.contentErr[logID]; err != nil {
		return "", false, err
	}
	return s.content[logID], false, nil
}
