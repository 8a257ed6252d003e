package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuesdata/internal/config"
	"tuesdata/pkg/contracts/domain"
)

const (
	testCatalogCSV = `song,artist,year,type,gender,duration,language,source,date,difficulty,specialbooks
Riptide,Vance Joy,2013,regular,male,204,English,book1,20230101,6,none
`
	testPlayCSV = `song,artist,20230103
Riptide,Vance Joy,A
`
	testRequestCSV = `song,artist,20230103
Riptide,Vance Joy,G
`
)

func TestRunExportsReports(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"tabdb.csv":     testCatalogCSV,
		"playdb.csv":    testPlayCSV,
		"requestdb.csv": testRequestCSV,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	outDir := filepath.Join(dir, "reports")

	t.Setenv("TUESDATA_PATHS_DATA_DIR", dir)
	t.Setenv("TUESDATA_PATHS_LOGS_DIR", filepath.Join(dir, "logs"))
	t.Setenv("TUESDATA_LOGGING_OUTPUT", "stdout")

	err := run(
		filepath.Join(dir, "tabdb.csv"),
		filepath.Join(dir, "playdb.csv"),
		filepath.Join(dir, "requestdb.csv"),
		outDir,
	)
	require.NoError(t, err)

	for _, name := range []string{domain.CombinedCleanedFile, domain.CombinedDatasetFile} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, "expected report %s", name)
	}
}

func TestRunFailsOnMissingInput(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TUESDATA_PATHS_DATA_DIR", dir)
	t.Setenv("TUESDATA_PATHS_LOGS_DIR", filepath.Join(dir, "logs"))
	t.Setenv("TUESDATA_LOGGING_OUTPUT", "stdout")

	err := run("missing.csv", "missing.csv", "missing.csv", filepath.Join(dir, "reports"))
	require.Error(t, err)
}

func TestResolvePrefersExistingRelativePath(t *testing.T) {
	dir := t.TempDir()
	paths, err := config.NewPaths(config.PathsConfig{
		DataDir:    filepath.Join(dir, "data"),
		ReportsDir: filepath.Join(dir, "reports"),
		LogsDir:    filepath.Join(dir, "logs"),
	})
	require.NoError(t, err)

	abs := filepath.Join(dir, "somewhere", "tabdb.csv")
	assert.Equal(t, abs, resolve(paths, abs))
	assert.Equal(t, filepath.Join(paths.DataDir, "tabdb.csv"), resolve(paths, "tabdb.csv"))
}
