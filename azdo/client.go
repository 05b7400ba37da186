package azdo

// Package azdo is the client for the remote run-control and reporting
// system (Azure DevOps Pipelines/Build REST APIs). It covers exactly the
// operations the outcome engine consumes: triggering runs, polling run
// state, fetching timelines, and resolving logs through their two-step
// signed-URL indirection.

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pipewatch/pipewatch/model"
)

const (
	pipelinesAPIVersion = "7.2-preview.1"
	timelineAPIVersion  = "7.2-preview.2"

	// Logs larger than this are truncated on fetch rather than loaded
	// into memory whole. Truncation is reported to the caller.
	maxLogContentBytes = 4 << 20
)

// Client talks to one Azure DevOps organization. It is safe for
// concurrent use; all per-run state lives in the remote system.
type Client struct {
	logger     zerolog.Logger
	orgURL     string
	pat        string
	httpClient *http.Client
	retry      RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetryConfig replaces the default retry policy.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// New creates a client for the given organization URL
// (e.g. "https://dev.azure.com/myorg") authenticating with a personal
// access token.
func New(logger zerolog.Logger, orgURL, pat string, opts ...Option) (*Client, error) {
	if orgURL == "" {
		return nil, fmt.Errorf("organization URL is required")
	}

	c := &Client{
		logger:     logger,
		orgURL:     strings.TrimRight(orgURL, "/"),
		pat:        pat,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// OrgURL returns the organization URL this client is configured for.
func (c *Client) OrgURL() string {
	return c.orgURL
}

// TriggerRun starts a new run of the given pipeline. The returned Run is
// the remote system's initial view; callers observe progress by
// re-fetching with GetRun.
func (c *Client) TriggerRun(ctx context.Context, project string, pipelineID int, req model.RunRequest) (*model.Run, error) {
	url := fmt.Sprintf("%s/%s/_apis/pipelines/%d/runs?api-version=%s",
		c.orgURL, project, pipelineID, pipelinesAPIVersion)

	c.logger.Info().
		Str("project", project).
		Int("pipeline_id", pipelineID).
		Msg("Triggering pipeline run")

	var run model.Run
	if err := c.sendJSON(ctx, http.MethodPost, url, buildRunBody(req), &run); err != nil {
		return nil, fmt.Errorf("failed to trigger run: %w", err)
	}

	c.logger.Info().
		Int("run_id", run.ID).
		Str("state", string(run.State)).
		Msg("Pipeline run started")

	return &run, nil
}

// GetRun fetches the current state of a run.
func (c *Client) GetRun(ctx context.Context, project string, pipelineID, runID int) (*model.Run, error) {
	url := fmt.Sprintf("%s/%s/_apis/pipelines/%d/runs/%d?api-version=%s",
		c.orgURL, project, pipelineID, runID, pipelinesAPIVersion)

	var run model.Run
	if err := c.sendJSON(ctx, http.MethodGet, url, nil, &run); err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", runID, err)
	}

	c.logger.Debug().
		Int("run_id", run.ID).
		Str("state", string(run.State)).
		Str("result", string(run.Result)).
		Msg("Fetched run state")

	return &run, nil
}

// GetTimeline fetches the flat record list describing the execution
// hierarchy of a run. The run ID doubles as the build ID on the timeline
// endpoint.
func (c *Client) GetTimeline(ctx context.Context, project string, runID int) ([]model.TimelineRecord, error) {
	url := fmt.Sprintf("%s/%s/_apis/build/builds/%d/timeline?api-version=%s",
		c.orgURL, project, runID, timelineAPIVersion)

	var resp model.TimelineResponse
	if err := c.sendJSON(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get timeline for run %d: %w", runID, err)
	}

	c.logger.Debug().
		Int("run_id", runID).
		Int("records", len(resp.Records)).
		Msg("Fetched timeline")

	return resp.Records, nil
}

// ListLogs fetches the log handles for a run. Content is not included;
// it is fetched per entry with GetLogContent.
func (c *Client) ListLogs(ctx context.Context, project string, pipelineID, runID int) (*model.LogCollection, error) {
	url := fmt.Sprintf("%s/%s/_apis/pipelines/%d/runs/%d/logs?api-version=%s",
		c.orgURL, project, pipelineID, runID, pipelinesAPIVersion)

	var collection model.LogCollection
	if err := c.sendJSON(ctx, http.MethodGet, url, nil, &collection); err != nil {
		return nil, fmt.Errorf("failed to list logs for run %d: %w", runID, err)
	}

	c.logger.Debug().
		Int("run_id", runID).
		Int("logs", len(collection.Logs)).
		Msg("Fetched log collection")

	return &collection, nil
}

// GetLogContent resolves the content of one log in two steps: fetch the
// log's metadata with an expanded signed content URL, then fetch the
// content from that time-limited URL. The returned flag reports whether
// the content was truncated at the byte cap.
func (c *Client) GetLogContent(ctx context.Context, project string, pipelineID, runID, logID int) (string, bool, error) {
	url := fmt.Sprintf("%s/%s/_apis/pipelines/%d/runs/%d/logs/%d?$expand=signedContent&api-version=%s",
		c.orgURL, project, pipelineID, runID, logID, pipelinesAPIVersion)

	var entry model.LogEntry
	if err := c.sendJSON(ctx, http.MethodGet, url, nil, &entry); err != nil {
		return "", false, fmt.Errorf("failed to get log %d metadata: %w", logID, err)
	}

	if entry.SignedContent == nil || entry.SignedContent.URL == "" {
		return "", false, fmt.Errorf("log %d has no signed content URL", logID)
	}

	content, truncated, err := c.fetchSignedContent(ctx, entry.SignedContent.URL)
	if err != nil {
		return "", false, fmt.Errorf("failed to fetch content for log %d: %w", logID, err)
	}

	c.logger.Debug().
		Int("log_id", logID).
		Int("bytes", len(content)).
		Bool("truncated", truncated).
		Msg("Fetched log content")

	return content, truncated, nil
}

// fetchSignedContent downloads log content from a signed URL. The signed
// URL carries its own authorization; the PAT header must not be sent.
func (c *Client) fetchSignedContent(ctx context.Context, signedURL string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return "", false, err
	}

	var content string
	var truncated bool
	err = withRetry(ctx, c.logger, c.retry, func() error {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return newRequestError(resp, signedURL)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxLogContentBytes+1))
		if err != nil {
			return err
		}
		if len(data) > maxLogContentBytes {
			data = data[:maxLogContentBytes]
			truncated = true
		}
		content = string(data)
		return nil
	})
	return content, truncated, err
}

// sendJSON issues one authenticated API request with retry, decoding a
// JSON response into out when out is non-nil.
func (c *Client) sendJSON(ctx context.Context, method, url string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	return withRetry(ctx, c.logger, c.retry, func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.pat != "" {
			req.Header.Set("Authorization", "Basic "+
				base64.StdEncoding.EncodeToString([]byte(":"+c.pat)))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return newRequestError(resp, url)
		}

		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", url, err)
		}
		return nil
	})
}

// newRequestError builds a RequestError from a non-2xx response,
// capturing a bounded amount of the body and any Retry-After header.
func newRequestError(resp *http.Response, url string) *RequestError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	reqErr := &RequestError{
		StatusCode: resp.StatusCode,
		URL:        url,
		Body:       strings.TrimSpace(string(body)),
	}
	if resp.StatusCode == 429 {
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				reqErr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
	}
	return reqErr
}

// buildRunBody translates a RunRequest into the remote system's run
// request shape (variables wrapped in value objects, branch expressed as
// a self-repository ref override).
func buildRunBody(req model.RunRequest) map[string]any {
	body := map[string]any{}

	if len(req.Variables) > 0 {
		vars := make(map[string]any, len(req.Variables))
		for k, v := range req.Variables {
			vars[k] = map[string]string{"value": v}
		}
		body["variables"] = vars
	}
	if len(req.TemplateParameters) > 0 {
		body["templateParameters"] = req.TemplateParameters
	}
	if len(req.StagesToSkip) > 0 {
		body["stagesToSkip"] = req.StagesToSkip
	}

	resources := map[string]any{}
	for k, v := range req.Resources {
		resources[k] = v
	}
	if req.Branch != "" {
		ref := req.Branch
		if !strings.HasPrefix(ref, "refs/") {
			ref = "refs/heads/" + ref
		}
		repositories, _ := resources["repositories"].(map[string]any)
		if repositories == nil {
			repositories = map[string]any{}
		}
		repositories["self"] = map[string]string{"refName": ref}
		resources["repositories"] = repositories
	}
	if len(resources) > 0 {
		body["resources"] = resources
	}

	return body
}
