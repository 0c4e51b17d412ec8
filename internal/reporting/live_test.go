package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gboutry/defining-acceptance/internal/observer"
)

type collectorCall struct {
	Method string
	Path   string
	Body   string
}

// stubCollector fakes the collector REST API and records every call in
// arrival order.
type stubCollector struct {
	mu     sync.Mutex
	calls  []collectorCall
	nextID int64

	failCreate    bool
	failCreateFor string
	failResults   bool
	failPatch     bool

	server *httptest.Server
}

func newStubCollector(t *testing.T) *stubCollector {
	t.Helper()

	c := &stubCollector{nextID: 100}
	c.server = httptest.NewServer(http.HandlerFunc(c.handle))
	t.Cleanup(c.server.Close)
	return c
}

func (c *stubCollector) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	c.mu.Lock()
	c.calls = append(c.calls, collectorCall{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	failCreate, failResults, failPatch := c.failCreate, c.failResults, c.failPatch
	if c.failCreateFor != "" && strings.Contains(string(body), c.failCreateFor) {
		failCreate = true
	}
	c.mu.Unlock()

	switch {
	case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/start-test"):
		if failCreate {
			http.Error(w, "collector unavailable", http.StatusInternalServerError)
			return
		}
		c.mu.Lock()
		c.nextID++
		id := c.nextID
		c.mu.Unlock()
		fmt.Fprintf(w, `{"id": %d}`, id)

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/test-results"):
		if failResults {
			http.Error(w, "collector unavailable", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{}`)

	case r.Method == http.MethodPatch:
		if failPatch {
			http.Error(w, "collector unavailable", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{}`)

	default:
		http.NotFound(w, r)
	}
}

func (c *stubCollector) client() *observer.Client {
	return observer.NewClient(c.server.URL, "")
}

func (c *stubCollector) recorded() []collectorCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]collectorCall(nil), c.calls...)
}

func (c *stubCollector) setFailResults(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failResults = fail
}

func TestLiveSinkPostsFullCategory(t *testing.T) {
	collector := newStubCollector(t)
	sink := NewLiveSink(collector.client(), testMeta())

	require.NoError(t, sink.Emit(NewRunStarted("operations")))
	require.NoError(t, sink.Emit(NewStepResult("operations", 0, "deploy a workload", OutcomePassed, 40*time.Second, "workload up")))
	require.NoError(t, sink.Emit(NewStepResult("operations", 1, "enable loadbalancer", OutcomeSkipped, 0, "feature not enabled")))
	require.NoError(t, sink.Emit(NewStepResult("operations", 2, "resize a volume", OutcomeFailed, 12*time.Second, "volume stuck")))
	require.NoError(t, sink.Emit(NewRunEnded("operations", OutcomeFailed)))
	require.NoError(t, sink.Flush())

	calls := collector.recorded()
	require.Len(t, calls, 5)

	assert.Equal(t, http.MethodPut, calls[0].Method)
	assert.Equal(t, "/v1/test-executions/start-test", calls[0].Path)

	var start map[string]any
	require.NoError(t, json.Unmarshal([]byte(calls[0].Body), &start))
	assert.Equal(t, "sunbeam-acceptance-operations", start["test_plan"])
	assert.Equal(t, "IN_PROGRESS", start["initial_status"])
	assert.Equal(t, "snap", start["family"])
	assert.Equal(t, float64(1234), start["revision"])
	assert.Equal(t, "https://ci.example.com/job/42#sunbeam-acceptance-operations", start["ci_link"])

	for i, wantStatus := range []string{"PASSED", "SKIPPED", "FAILED"} {
		call := calls[i+1]
		assert.Equal(t, http.MethodPost, call.Method)
		assert.Equal(t, "/v1/test-executions/101/test-results", call.Path)

		var rows []map[string]any
		require.NoError(t, json.Unmarshal([]byte(call.Body), &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, wantStatus, rows[0]["status"])
		assert.Equal(t, "operations", rows[0]["category"])
	}

	assert.Equal(t, http.MethodPatch, calls[4].Method)
	assert.Equal(t, "/v1/test-executions/101", calls[4].Path)
	assert.JSONEq(t, `{"status": "FAILED"}`, calls[4].Body)

	stats := sink.Stats()["operations"]
	assert.True(t, stats.Created)
	assert.Equal(t, int64(101), stats.ExecutionID)
	assert.Equal(t, 5, stats.Delivered)
	assert.Zero(t, stats.Failed)
}

func TestLiveSinkSkipReasonRidesInIOLog(t *testing.T) {
	collector := newStubCollector(t)
	sink := NewLiveSink(collector.client(), testMeta())

	require.NoError(t, sink.Emit(NewRunStarted("provisioning")))
	require.NoError(t, sink.Emit(NewStepResult("provisioning", 0, "maas bootstrap", OutcomeSkipped, 0, `testbed does not satisfy capability "maas"`)))

	calls := collector.recorded()
	require.Len(t, calls, 2)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(calls[1].Body), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, `testbed does not satisfy capability "maas"`, rows[0]["io_log"])
}

func TestLiveSinkTransportFailureDoesNotFailEmit(t *testing.T) {
	collector := newStubCollector(t)
	sink := NewLiveSink(collector.client(), testMeta())

	require.NoError(t, sink.Emit(NewRunStarted("reliability")))

	collector.setFailResults(true)
	require.NoError(t, sink.Emit(NewStepResult("reliability", 0, "restart machine", OutcomePassed, 0, "")))
	collector.setFailResults(false)

	require.NoError(t, sink.Emit(NewRunEnded("reliability", OutcomePassed)))

	stats := sink.Stats()["reliability"]
	assert.Equal(t, 2, stats.Delivered)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Reasons, 1)
	assert.Contains(t, stats.Reasons[0], "restart machine")
}

func TestLiveSinkCreateFailureDropsCategory(t *testing.T) {
	collector := newStubCollector(t)
	collector.failCreate = true
	sink := NewLiveSink(collector.client(), testMeta())

	require.NoError(t, sink.Emit(NewRunStarted("security")))
	require.NoError(t, sink.Emit(NewStepResult("security", 0, "tls check", OutcomePassed, 0, "")))
	require.NoError(t, sink.Emit(NewRunEnded("security", OutcomePassed)))

	// Only the failed create reached the wire
	require.Len(t, collector.recorded(), 1)

	stats := sink.Stats()["security"]
	assert.True(t, stats.CreateFailed)
	assert.Zero(t, stats.Delivered)
	assert.Equal(t, 3, stats.Failed)
}

func TestLiveSinkEnforcesOrdering(t *testing.T) {
	collector := newStubCollector(t)
	sink := NewLiveSink(collector.client(), testMeta())

	assert.ErrorIs(t, sink.Emit(NewStepResult("performance", 0, "throughput", OutcomePassed, 0, "")), ErrRunNotStarted)

	require.NoError(t, sink.Emit(NewRunStarted("performance")))
	require.NoError(t, sink.Emit(NewRunEnded("performance", OutcomePassed)))
	assert.ErrorIs(t, sink.Emit(NewStepResult("performance", 1, "late", OutcomePassed, 0, "")), ErrRunClosed)

	// Rejected events never reach the wire
	require.Len(t, collector.recorded(), 2)
}

func TestLiveSinkCategoriesGetDistinctExecutions(t *testing.T) {
	collector := newStubCollector(t)
	sink := NewLiveSink(collector.client(), testMeta())

	require.NoError(t, sink.Emit(NewRunStarted("operations")))
	require.NoError(t, sink.Emit(NewRunStarted("security")))
	require.NoError(t, sink.Emit(NewRunEnded("operations", OutcomePassed)))
	require.NoError(t, sink.Emit(NewRunEnded("security", OutcomeFailed)))

	stats := sink.Stats()
	assert.Equal(t, int64(101), stats["operations"].ExecutionID)
	assert.Equal(t, int64(102), stats["security"].ExecutionID)

	calls := collector.recorded()
	require.Len(t, calls, 4)
	assert.Equal(t, "/v1/test-executions/101", calls[2].Path)
	assert.JSONEq(t, `{"status": "PASSED"}`, calls[2].Body)
	assert.Equal(t, "/v1/test-executions/102", calls[3].Path)
	assert.JSONEq(t, `{"status": "FAILED"}`, calls[3].Body)
}
