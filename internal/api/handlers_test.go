package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eleven-am/subflow/internal/adapters/driver_registry"
	"github.com/eleven-am/subflow/internal/adapters/observability"
	"github.com/eleven-am/subflow/internal/adapters/storage"
	"github.com/eleven-am/subflow/internal/adapters/subworkflow"
	"github.com/eleven-am/subflow/internal/core"
	"github.com/eleven-am/subflow/internal/domain"
	"github.com/eleven-am/subflow/internal/ports"
	json "github.com/eleven-am/subflow/internal/xjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := storage.Open(domain.StorageConfig{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	registry := driver_registry.NewAdapter(nil)
	require.NoError(t, registry.RegisterDriver(subworkflow.NewDriver(nil)))
	executor := core.NewExecutor(store, registry, nil)

	return NewServer(":0", executor, registry, nil, nil)
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHandler_SubWorkflowRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/workflows", StartWorkflowRequest{
		Name:          "checkout",
		Version:       1,
		CorrelationID: "corr-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var started StartWorkflowResponse
	decode(t, rec, &started)
	require.NotEmpty(t, started.ID)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/workflows/"+started.ID+"/tasks", ScheduleTaskRequest{
		Kind: subworkflow.Kind,
		Input: map[string]interface{}{
			subworkflow.InputSubWorkflowName:    "billing",
			subworkflow.InputSubWorkflowVersion: 2,
			subworkflow.InputWorkflowInput:      map[string]interface{}{"amount": 100},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task domain.Task
	decode(t, rec, &task)
	assert.Equal(t, domain.TaskStatusInProgress, task.Status)
	childID, ok := subworkflow.SubWorkflowID(&task)
	require.True(t, ok)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/workflows?parent="+started.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var children []domain.Workflow
	decode(t, rec, &children)
	require.Len(t, children, 1)
	assert.Equal(t, childID, children[0].ID)
	assert.Equal(t, "corr-1", children[0].CorrelationID)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/workflows/"+childID+"/complete", CompleteWorkflowRequest{
		Status: domain.WorkflowStatusCompleted,
		Output: map[string]interface{}{"invoiceId": "inv-9"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/workflows/"+started.ID+"/tasks/"+task.ID+"/execute", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var executed ExecuteTaskResponse
	decode(t, rec, &executed)
	assert.True(t, executed.Changed)
	assert.Equal(t, domain.TaskStatusCompleted, executed.Task.Status)
	assert.Equal(t, "inv-9", executed.Task.OutputData["invoiceId"])

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/workflows/"+started.ID+"?include_tasks=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var parent domain.Workflow
	decode(t, rec, &parent)
	require.Len(t, parent.Tasks, 1)
}

func TestHandler_TerminateCascades(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/workflows", StartWorkflowRequest{Name: "checkout", Version: 1})
	var started StartWorkflowResponse
	decode(t, rec, &started)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/workflows/"+started.ID+"/tasks", ScheduleTaskRequest{
		Kind: subworkflow.Kind,
		Input: map[string]interface{}{
			subworkflow.InputSubWorkflowName:    "billing",
			subworkflow.InputSubWorkflowVersion: 1,
		},
	})
	var task domain.Task
	decode(t, rec, &task)
	childID, _ := subworkflow.SubWorkflowID(&task)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/workflows/"+started.ID+"/terminate",
		TerminateWorkflowRequest{Reason: "operator"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/workflows/"+childID, nil)
	var child domain.Workflow
	decode(t, rec, &child)
	assert.Equal(t, domain.WorkflowStatusTerminated, child.Status)
	assert.Contains(t, child.ReasonForIncompletion, "TERMINATED")
}

func TestHandler_ErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/workflows/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errResp ErrorResponse
	decode(t, rec, &errResp)
	assert.Equal(t, "workflow not found", errResp.Error)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/workflows", StartWorkflowRequest{Version: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/workflows?status=BOGUS", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/workflows/x?include_tasks=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/workflows", StartWorkflowRequest{Name: "checkout", Version: 1})
	var started StartWorkflowResponse
	decode(t, rec, &started)
	doRequest(t, srv, http.MethodPost, "/api/v1/workflows/"+started.ID+"/complete",
		CompleteWorkflowRequest{Status: domain.WorkflowStatusCompleted})
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/workflows/"+started.ID+"/complete",
		CompleteWorkflowRequest{Status: domain.WorkflowStatusFailed})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_InvalidBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ListDriversAndHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/drivers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var drivers DriversResponse
	decode(t, rec, &drivers)
	assert.Equal(t, []string{"SUB_WORKFLOW"}, drivers.Kinds)

	rec = doRequest(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t)
	collector := observability.NewCollector("subflow")
	collector.Register("subworkflow", func() map[string]int64 {
		return map[string]int64{"completed": 5}
	})
	srv.EnableMetrics(collector)

	rec := doRequest(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var metrics observability.MetricsResponse
	decode(t, rec, &metrics)
	assert.Equal(t, int64(5), metrics.Application["subworkflow"]["completed"])

	rec = doRequest(t, srv, http.MethodGet, "/metrics/prometheus", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "subflow_subworkflow_completed_total 5")
}

type stubHealth struct {
	status ports.HealthStatus
	ready  bool
}

func (h stubHealth) GetHealth(context.Context) ports.HealthStatus {
	return h.status
}

func (h stubHealth) IsReady(context.Context) bool {
	return h.ready
}

func TestServer_HealthAndReadiness(t *testing.T) {
	registry := driver_registry.NewAdapter(nil)

	unhealthy := NewServer(":0", nil, registry, stubHealth{
		status: ports.HealthStatus{Healthy: false, Status: "store_unavailable"},
	}, nil)
	rec := doRequest(t, unhealthy, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "store_unavailable")
	rec = doRequest(t, unhealthy, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	healthy := NewServer(":0", nil, registry, stubHealth{
		status: ports.HealthStatus{Healthy: true, Status: "healthy"},
		ready:  true,
	}, nil)
	rec = doRequest(t, healthy, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, healthy, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
