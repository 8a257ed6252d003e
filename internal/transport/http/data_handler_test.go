package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuesdata/internal/config"
	"tuesdata/internal/exporter"
	"tuesdata/internal/filtering"
	"tuesdata/internal/loader"
	"tuesdata/internal/operations"
	"tuesdata/internal/services"
)

const (
	testCatalogCSV = `song,artist,year,type,gender,duration,language,source,date,difficulty,specialbooks
Riptide,Vance Joy,2013,regular,male,204,English,book1,20230101,6,none
Zombie,The Cranberries,1994,regular,female,306,English,book2,20230108,3,none
`
	testPlayCSV = `song,artist,20230103,20230110
Riptide,Vance Joy,A,
Zombie,The Cranberries,G,A
`
	testRequestCSV = `song,artist,20230103
Riptide,Vance Joy,G
`
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	paths, err := config.NewPaths(config.PathsConfig{
		DataDir:    filepath.Join(dir, "data"),
		ReportsDir: filepath.Join(dir, "reports"),
		LogsDir:    filepath.Join(dir, "logs"),
	})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	for name, content := range map[string]string{
		"tabdb.csv":     testCatalogCSV,
		"playdb.csv":    testPlayCSV,
		"requestdb.csv": testRequestCSV,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(paths.DataDir, name), []byte(content), 0644))
	}

	l := loader.NewLoader(nil)
	writer := exporter.NewCSVWriter(paths, nil)
	registry, err := operations.NewPipelineRegistry(l, writer, nil)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	manager := operations.NewManager(registry, operations.NewMetrics(reg), nil)
	data := services.NewDataService(l, manager, filtering.NewEngine(nil), writer, paths, nil)
	health := services.NewHealthService(data, "test", nil)

	cfg := config.Default().Server
	router := NewRouter(cfg, RouterDeps{
		Data:     data,
		Health:   health,
		Registry: reg,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func getJSON(t *testing.T, srv *httptest.Server, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

// loadAndPreprocess drives the API through a full load and pipeline run.
func loadAndPreprocess(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp, body := postJSON(t, srv, "/api/data/load", map[string]string{
		"catalog":    "tabdb.csv",
		"playlog":    "playdb.csv",
		"requestlog": "requestdb.csv",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "load failed: %v", body)

	resp, body = postJSON(t, srv, "/api/operations/preprocess", map[string]string{})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, "preprocess failed: %v", body)
	opID, _ := body["operation_id"].(string)
	require.NotEmpty(t, opID)

	require.Eventually(t, func() bool {
		resp, body := getJSON(t, srv, "/api/operations/"+opID)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		data, _ := body["data"].(map[string]any)
		status, _ := data["status"].(string)
		return status == string(operations.OperationStatusCompleted) ||
			status == string(operations.OperationStatusFailed)
	}, 5*time.Second, 50*time.Millisecond)

	_, body = getJSON(t, srv, "/api/operations/"+opID)
	data := body["data"].(map[string]any)
	require.Equal(t, string(operations.OperationStatusCompleted), data["status"],
		"pipeline error: %v", data["error"])
	return opID
}

func TestLoadValidatesRequest(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postJSON(t, srv, "/api/data/load", map[string]string{"catalog": "tabdb.csv"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_FAILED", errObj["error_code"])
}

func TestLoadReportsMissingColumns(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postJSON(t, srv, "/api/data/load", map[string]string{
		"catalog":    "playdb.csv", // wrong schema for a catalog
		"playlog":    "playdb.csv",
		"requestlog": "requestdb.csv",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "MISSING_COLUMNS", errObj["error_code"])
}

func TestQueryRequiresPreprocessing(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postJSON(t, srv, "/api/data/query", map[string]any{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "NO_DATA_LOADED", errObj["error_code"])
}

func TestQueryCombinedDataset(t *testing.T) {
	srv := newTestServer(t)
	loadAndPreprocess(t, srv)

	resp, body := postJSON(t, srv, "/api/data/query", map[string]any{
		"columns": []string{"year"},
		"filters": map[string]string{"song": "Riptide"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "query failed: %v", body)

	cols := body["columns"].([]any)
	assert.ElementsMatch(t, []any{"song", "artist", "dates", "year", "play_count"}, cols)

	rows := body["rows"].([]any)
	require.NotEmpty(t, rows)
	for _, raw := range rows {
		row := raw.(map[string]any)
		assert.Equal(t, "Riptide", row["song"])
		assert.Equal(t, float64(2013), row["year"])
	}
}

func TestQueryRejectsBadDates(t *testing.T) {
	srv := newTestServer(t)
	loadAndPreprocess(t, srv)

	resp, body := postJSON(t, srv, "/api/data/query", map[string]any{
		"date_from": "03/01/2023",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_FAILED", errObj["error_code"])
}

func TestFilterCombinedDataset(t *testing.T) {
	srv := newTestServer(t)
	loadAndPreprocess(t, srv)

	resp, body := postJSON(t, srv, "/api/data/filter", map[string]any{
		"filters":     map[string]string{"artist": "Vance Joy"},
		"deduplicate": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "filter failed: %v", body)

	rows := body["rows"].([]any)
	require.NotEmpty(t, rows)
	for _, raw := range rows {
		row := raw.(map[string]any)
		assert.Equal(t, "Vance Joy", row["artist"])
	}
}

func TestDownloadReport(t *testing.T) {
	srv := newTestServer(t)
	loadAndPreprocess(t, srv)

	resp, err := http.Get(srv.URL + "/api/data/download/combined_dataset.csv")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "combined_dataset.csv")

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "Riptide")
}

func TestDownloadRejectsNonCSV(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/data/download/report.txt")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDownloadMissingReport(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/data/download/nope.csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	loadAndPreprocess(t, srv)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "tuesdata_operations_runs_total")
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
