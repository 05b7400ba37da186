package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/pipewatch/pipewatch/model"
)

// resolveRootCauseLogs populates log excerpts for the root causes of a
// failure summary. Hierarchy failures never get logs resolved; their
// failure is a consequence of something below them.
//
// When nameFilter is non-empty, only root causes whose record name
// contains it (case-insensitive) are resolved; the rest keep a nil
// excerpt. Fetches for distinct root causes run in parallel under a
// small cap. Every per-entry failure degrades to a nil excerpt with a
// warning; log trouble is never fatal to failure analysis.
func (e *Engine) resolveRootCauseLogs(ctx context.Context, project string, pipelineID, runID int, summary *model.FailureSummary, logs *model.LogCollection, nameFilter string) {
	sem := make(chan struct{}, e.logConcurrency)
	var wg sync.WaitGroup

	for i := range summary.RootCauses {
		failure := &summary.RootCauses[i]

		if nameFilter != "" && !nameMatches(failure.Record.Name, nameFilter) {
			continue
		}
		logID := failure.Record.LogID()
		if logID == 0 {
			e.logger.Debug().
				Str("step", failure.Record.Name).
				Msg("Root cause has no log reference, skipping")
			continue
		}
		if logs != nil && logs.Entry(logID) == nil {
			e.logger.Warn().
				Str("step", failure.Record.Name).
				Int("log_id", logID).
				Msg("Root cause references a log missing from the collection, skipping")
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			content, truncated, err := e.service.GetLogContent(ctx, project, pipelineID, runID, logID)
			if err != nil {
				e.logger.Warn().
					Err(err).
					Str("step", failure.Record.Name).
					Int("log_id", logID).
					Msg("Failed to fetch log content for root cause")
				return
			}

			excerpt, tailTruncated := tailLines(content, e.maxLogLines)
			failure.LogExcerpt = &excerpt
			failure.LogTruncated = truncated || tailTruncated
			failure.ErrorSignature = extractSignature(excerpt)
		}()
	}

	wg.Wait()
}

// nameMatches performs the case-insensitive substring match used for
// step name filtering.
func nameMatches(name, filter string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(filter))
}

// tailLines keeps the last maxLines lines of content, reporting whether
// anything was dropped. Zero or negative maxLines keeps everything.
func tailLines(content string, maxLines int) (string, bool) {
	if maxLines <= 0 {
		return content, false
	}
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) <= maxLines {
		return content, false
	}
	return strings.Join(lines[len(lines)-maxLines:], "\n"), true
}
