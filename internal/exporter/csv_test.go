package exporter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuesdata/internal/config"
	"tuesdata/internal/dataset"
	"tuesdata/pkg/contracts/domain"
)

func newTestWriter(t *testing.T) (*CSVWriter, string) {
	t.Helper()
	dir := t.TempDir()
	paths, err := config.NewPaths(config.PathsConfig{
		DataDir:    filepath.Join(dir, "data"),
		ReportsDir: filepath.Join(dir, "reports"),
		LogsDir:    filepath.Join(dir, "logs"),
	})
	require.NoError(t, err)
	return NewCSVWriter(paths, nil), paths.ReportsDir
}

func TestWriteTable(t *testing.T) {
	writer, reportsDir := newTestWriter(t)

	tbl := dataset.New("extra", "artist", "song", "year")
	require.NoError(t, tbl.AppendRow([]dataset.Value{
		dataset.String("x"),
		dataset.String("Vance Joy"),
		dataset.String("Riptide"),
		dataset.Number(2013),
	}))
	require.NoError(t, tbl.AppendRow([]dataset.Value{
		dataset.Null(),
		dataset.String("The Cranberries"),
		dataset.String("Zombie"),
		dataset.Date(time.Date(1994, 9, 19, 0, 0, 0, 0, time.UTC)),
	}))

	require.NoError(t, writer.WriteTable("out.csv", tbl))

	raw, err := os.ReadFile(filepath.Join(reportsDir, "out.csv"))
	require.NoError(t, err)

	content := string(raw)
	assert.True(t, strings.HasPrefix(content, "\xef\xbb\xbf"), "file must start with a UTF-8 BOM")

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(content, "\xef\xbb\xbf")), "\n")
	require.Len(t, lines, 3)
	// canonical columns lead, extras trail
	assert.Equal(t, "song,artist,year,extra", lines[0])
	assert.Equal(t, "Riptide,Vance Joy,2013,x", lines[1])
	// nulls render empty, dates render ISO
	assert.Equal(t, "Zombie,The Cranberries,1994-09-19,", lines[2])
}

func TestWriteCombined(t *testing.T) {
	writer, reportsDir := newTestWriter(t)

	tbl := dataset.New("song", "artist")
	require.NoError(t, tbl.AppendRow([]dataset.Value{
		dataset.String("Riptide"), dataset.String("Vance Joy"),
	}))

	files, err := writer.WriteCombined(tbl)
	require.NoError(t, err)

	assert.Equal(t, []string{domain.CombinedCleanedFile, domain.CombinedDatasetFile}, files)
	for _, name := range files {
		_, err := os.Stat(filepath.Join(reportsDir, name))
		assert.NoError(t, err, name)
	}
}

func TestExportColumns(t *testing.T) {
	tbl := dataset.New("play_count", "dates", "song", "artist")

	assert.Equal(t, []string{"song", "artist", "dates", "play_count"}, ExportColumns(tbl))
}
