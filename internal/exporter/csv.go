package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tuesdata/internal/config"
	"tuesdata/internal/dataset"
	"tuesdata/pkg/contracts/domain"
)

// CSVWriter writes pipeline tables to the reports directory as UTF-8 CSV
// files with a BOM prefix for spreadsheet compatibility.
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a CSV writer rooted at the configured report paths.
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		paths:  paths,
		logger: logger.With(slog.String("component", "exporter")),
	}
}

// WriteOptions configures low-level CSV writing.
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool
}

// WriteCSV writes headers and records to the named report file, creating
// parent directories as needed.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	w.logger.Info("writing CSV file",
		slog.String("path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	return writer.Error()
}

// WriteTable writes a table to the named report file with its columns in
// export order: the canonical combined columns first, in contract order,
// then any remaining columns in table order.
func (w *CSVWriter) WriteTable(filePath string, t *dataset.Table) error {
	headers := ExportColumns(t)

	records := make([][]string, 0, t.RowCount())
	for r := 0; r < t.RowCount(); r++ {
		record := make([]string, len(headers))
		for i, col := range headers {
			record[i] = t.Value(r, col).Display()
		}
		records = append(records, record)
	}

	return w.WriteCSV(filePath, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: true,
	})
}

// WriteCombined writes the combined dataset to its two canonical report
// files and returns their names.
func (w *CSVWriter) WriteCombined(t *dataset.Table) ([]string, error) {
	files := []string{domain.CombinedCleanedFile, domain.CombinedDatasetFile}
	for _, name := range files {
		if err := w.WriteTable(name, t); err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", name, err)
		}
	}
	return files, nil
}

// ExportColumns returns the table's columns in export order.
func ExportColumns(t *dataset.Table) []string {
	known := make(map[string]bool, len(domain.CombinedColumns))
	var headers []string
	for _, col := range domain.CombinedColumns {
		known[col] = true
		if t.HasColumn(col) {
			headers = append(headers, col)
		}
	}
	for _, col := range t.Columns() {
		if !known[col] {
			headers = append(headers, col)
		}
	}
	return headers
}

func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	return w.paths.ReportPath(filePath)
}
