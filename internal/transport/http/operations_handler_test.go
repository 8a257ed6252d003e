package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessWithoutLoadedTables(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postJSON(t, srv, "/api/operations/preprocess", map[string]string{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "NO_DATA_LOADED", errObj["error_code"])
}

func TestGetUnknownOperation(t *testing.T) {
	srv := newTestServer(t)

	resp, body := getJSON(t, srv, "/api/operations/no-such-id")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "OPERATION_NOT_FOUND", errObj["error_code"])
}

func TestListOperations(t *testing.T) {
	srv := newTestServer(t)

	resp, body := getJSON(t, srv, "/api/operations/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["count"])

	opID := loadAndPreprocess(t, srv)

	resp, body = getJSON(t, srv, "/api/operations/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])

	snapshots := body["data"].([]any)
	first := snapshots[0].(map[string]any)
	assert.Equal(t, opID, first["id"])

	steps := first["steps"].([]any)
	assert.Len(t, steps, 6)
}

func TestOperationSnapshotSteps(t *testing.T) {
	srv := newTestServer(t)
	opID := loadAndPreprocess(t, srv)

	_, body := getJSON(t, srv, "/api/operations/"+opID)
	data := body["data"].(map[string]any)

	statuses := map[string]string{}
	for _, raw := range data["steps"].([]any) {
		step := raw.(map[string]any)
		statuses[step["id"].(string)] = step["status"].(string)
	}

	// tables are injected in memory, so the file-load step is skipped
	assert.Equal(t, "skipped", statuses["load"])
	for _, id := range []string{"clean", "reshape", "merge", "derive", "export"} {
		assert.Equal(t, "completed", statuses[id], "step %s", id)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, body := getJSON(t, srv, "/api/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, false, body["data_loaded"])
}
