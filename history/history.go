package history

// This file contains shared history utilities for recording and loading
// pipeline run outcomes.

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pipewatch/pipewatch/model"
)

// Record is one locally recorded outcome request.
type Record struct {
	// Unique ID for this invocation (16 random bytes, hex encoded)
	ID string `json:"id"`
	// Timestamp when the request started
	Timestamp time.Time `json:"timestamp"`
	// Command-line arguments (including command name)
	Args []string `json:"args"`
	// Project and pipeline the run belonged to
	Project    string `json:"project"`
	PipelineID int    `json:"pipeline_id"`
	// The consolidated outcome
	Outcome model.PipelineOutcome `json:"outcome"`
}

// Entry pairs a loaded record with the directory it was read from.
type Entry struct {
	Record   Record
	FullPath string
}

// Root returns the .pipewatch directory for the current repository.
// Outside a git repository it falls back to the working directory.
func Root() (string, error) {
	base, err := repoRoot()
	if err != nil {
		base, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to determine working directory: %w", err)
		}
	}
	return filepath.Join(base, ".pipewatch"), nil
}

func repoRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not in a git repository: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// Save writes a record under root as
// history/<timestamp>-<short id>/outcome.json and returns the directory.
func Save(logger zerolog.Logger, root string, rec Record) (string, error) {
	shortID := rec.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	runName := fmt.Sprintf("%s-%s", rec.Timestamp.Format("20060102-150405"), shortID)
	runDir := filepath.Join(root, "history", runName)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal outcome record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "outcome.json"), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write outcome record: %w", err)
	}

	logger.Debug().Str("dir", runDir).Str("id", rec.ID).Msg("Recorded pipeline outcome")
	return runDir, nil
}

// LoadEntries loads all recorded outcomes below root.
func LoadEntries(logger zerolog.Logger, root string) ([]Entry, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, fmt.Errorf("no recorded outcomes found in %s", root)
	}

	var entries []Entry
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			recordPath := filepath.Join(path, "outcome.json")
			if _, err := os.Stat(recordPath); err == nil {
				rec, err := parseRecord(recordPath)
				if err != nil {
					logger.Warn().Err(err).Str("path", recordPath).Msg("Failed to parse outcome.json")
					return nil
				}

				entries = append(entries, Entry{
					Record:   rec,
					FullPath: path,
				})
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk history directory: %w", err)
	}

	return entries, nil
}

// parseRecord parses one outcome.json file.
func parseRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}

	return rec, nil
}
