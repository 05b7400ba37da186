package azdo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pipewatch/pipewatch/model"
)

// fastRetry keeps test backoff delays in the microsecond range.
func fastRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialDelay:      time.Microsecond,
		MaxDelay:          time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(zerolog.Nop(), srv.URL, "secret-pat", WithRetryConfig(fastRetry()))
	require.NoError(t, err)
	return client, srv
}

func TestNew_RequiresOrgURL(t *testing.T) {
	_, err := New(zerolog.Nop(), "", "pat")
	require.Error(t, err)
}

func TestGetRun(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/proj/_apis/pipelines/7/runs/42", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)

		auth := r.Header.Get("Authorization")
		require.True(t, strings.HasPrefix(auth, "Basic "), "expected basic auth, got %q", auth)

		json.NewEncoder(w).Encode(map[string]any{
			"id":     42,
			"state":  "completed",
			"result": "succeeded",
			"pipeline": map[string]any{
				"id": 7, "name": "ci",
			},
		})
	}))

	run, err := client.GetRun(context.Background(), "proj", 7, 42)
	require.NoError(t, err)
	require.Equal(t, 42, run.ID)
	require.True(t, run.IsSuccessful())
	require.Equal(t, 7, run.PipelineID())
}

func TestTriggerRun_BodyShape(t *testing.T) {
	var body map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(map[string]any{"id": 1, "state": "inProgress"})
	}))

	_, err := client.TriggerRun(context.Background(), "proj", 7, model.RunRequest{
		Variables:          map[string]string{"env": "staging"},
		TemplateParameters: map[string]string{"suite": "smoke"},
		StagesToSkip:       []string{"Deploy"},
		Branch:             "feature/x",
	})
	require.NoError(t, err)

	require.Equal(t, map[string]any{"value": "staging"}, body["variables"].(map[string]any)["env"])
	require.Equal(t, "smoke", body["templateParameters"].(map[string]any)["suite"])
	require.Equal(t, []any{"Deploy"}, body["stagesToSkip"])

	repos := body["resources"].(map[string]any)["repositories"].(map[string]any)
	require.Equal(t, "refs/heads/feature/x", repos["self"].(map[string]any)["refName"])
}

func TestGetTimeline(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/proj/_apis/build/builds/42/timeline", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{
				{"id": "stage-1", "type": "Stage", "name": "Build", "state": "completed", "result": "failed"},
				{"id": "job-1", "parentId": "stage-1", "type": "Job", "name": "Compile",
					"state": "completed", "result": "failed", "log": map[string]any{"id": 9}},
			},
		})
	}))

	records, err := client.GetTimeline(context.Background(), "proj", 42)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "stage-1", records[1].ParentID)
	require.Equal(t, 9, records[1].LogID())
	require.True(t, records[0].Failed())
}

func TestSendJSON_RetriesTransientFailures(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			w.WriteHeader(http.StatusInternalServerError)
		case 2:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			json.NewEncoder(w).Encode(map[string]any{"id": 42, "state": "inProgress"})
		}
	}))

	run, err := client.GetRun(context.Background(), "proj", 7, 42)
	require.NoError(t, err)
	require.Equal(t, 42, run.ID)
	require.Equal(t, 3, calls)
}

func TestSendJSON_InvalidInputNotRetried(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "pipeline not found", http.StatusNotFound)
	}))

	_, err := client.GetRun(context.Background(), "proj", 7, 42)
	require.Error(t, err)
	require.Equal(t, 1, calls)
	require.True(t, IsInvalidInput(err))
	require.False(t, IsTransient(err))
}

func TestSendJSON_RetryBudgetExhausted(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.GetRun(context.Background(), "proj", 7, 42)
	require.Error(t, err)
	require.Equal(t, 4, calls) // initial attempt + 3 retries
	require.True(t, IsTransient(err))
}

func TestGetLogContent_TwoStepSignedURL(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/proj/_apis/pipelines/7/runs/42/logs/9", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "signedContent", r.URL.Query().Get("$expand"))
		json.NewEncoder(w).Encode(map[string]any{
			"id":        9,
			"lineCount": 2,
			"signedContent": map[string]any{
				"url": srv.URL + "/signed/9?sig=abc",
			},
		})
	})
	mux.HandleFunc("/signed/9", func(w http.ResponseWriter, r *http.Request) {
		// The signed URL is self-authorizing; the PAT must not leak here.
		require.Empty(t, r.Header.Get("Authorization"))
		fmt.Fprint(w, "line one\nline two")
	})

	client, server := newTestClient(t, mux)
	srv = server

	content, truncated, err := client.GetLogContent(context.Background(), "proj", 7, 42, 9)
	require.NoError(t, err)
	require.False(t, truncated)
	require.Equal(t, "line one\nline two", content)
}

func TestGetLogContent_MissingSignedURL(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": 9, "lineCount": 0})
	}))

	_, _, err := client.GetLogContent(context.Background(), "proj", 7, 42, 9)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no signed content URL")
}

func TestListLogs(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/proj/_apis/pipelines/7/runs/42/logs", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"logs": []map[string]any{
				{"id": 1, "lineCount": 10},
				{"id": 2, "lineCount": 20},
			},
		})
	}))

	collection, err := client.ListLogs(context.Background(), "proj", 7, 42)
	require.NoError(t, err)
	require.Len(t, collection.Logs, 2)
	require.NotNil(t, collection.Entry(2))
	require.Nil(t, collection.Entry(3))
}

func TestRetryConfig_Delay(t *testing.T) {
	cfg := RetryConfig{
		InitialDelay:      time.Second,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
	}

	require.Equal(t, time.Second, cfg.delay(0, 0))
	require.Equal(t, 2*time.Second, cfg.delay(1, 0))
	require.Equal(t, 4*time.Second, cfg.delay(2, 0))
	require.Equal(t, 10*time.Second, cfg.delay(10, 0))
	// Retry-After wins over computed backoff.
	require.Equal(t, 7*time.Second, cfg.delay(0, 7*time.Second))
}
