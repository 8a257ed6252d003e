package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"tuesdata/internal/dataset"
	"tuesdata/pkg/contracts/domain"
)

// Loader reads delimited files into tables and enforces the required-column
// contract. CSV is the primary format; .xlsx workbooks are accepted for the
// same schemas.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With(slog.String("component", "loader"))}
}

// MissingColumnsError reports a structural schema failure. It carries the
// complete set of missing column names; no partial table is returned.
type MissingColumnsError struct {
	Path    string
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Path, strings.Join(e.Missing, ", "))
}

// Load reads the file at path as the given table kind, validates its
// required columns, applies the load-time renames and captures the
// event-date column list.
func (l *Loader) Load(ctx context.Context, kind domain.TableKind, path string) (*dataset.Table, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown table kind %q", kind)
	}

	header, rows, err := l.readRows(path)
	if err != nil {
		return nil, err
	}

	required := domain.LogRequiredColumns
	if kind == domain.TableCatalog {
		required = domain.CatalogRequiredColumns
	}
	if missing := missingColumns(header, required); len(missing) > 0 {
		return nil, &MissingColumnsError{Path: path, Missing: missing}
	}

	t := dataset.New(header...)
	for i, row := range rows {
		vals := make([]dataset.Value, 0, len(row))
		for _, cell := range row {
			if cell == "" {
				vals = append(vals, dataset.Null())
			} else {
				vals = append(vals, dataset.String(cell))
			}
		}
		if err := t.AppendRow(vals); err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", path, i+1, err)
		}
	}

	if kind == domain.TableCatalog {
		for from, to := range domain.CatalogLoadRenames {
			t.Rename(from, to)
		}
	}
	t.DetectEventDateColumns()

	l.logger.InfoContext(ctx, "loaded input table",
		slog.String("kind", string(kind)),
		slog.String("path", path),
		slog.Int("rows", t.RowCount()),
		slog.Int("columns", t.Width()),
		slog.Int("event_date_columns", len(t.EventDateColumns())))

	return t, nil
}

// Inputs bundles the three loaded tables of a preprocessing run.
type Inputs struct {
	Catalog    *dataset.Table
	PlayLog    *dataset.Table
	RequestLog *dataset.Table
}

// LoadAll loads the catalog, play log and request log concurrently. Any
// failure aborts the whole load; no partial Inputs value is returned.
func (l *Loader) LoadAll(ctx context.Context, catalogPath, playPath, requestPath string) (*Inputs, error) {
	var in Inputs
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t, err := l.Load(gctx, domain.TableCatalog, catalogPath)
		if err != nil {
			return err
		}
		in.Catalog = t
		return nil
	})
	g.Go(func() error {
		t, err := l.Load(gctx, domain.TablePlayLog, playPath)
		if err != nil {
			return err
		}
		in.PlayLog = t
		return nil
	})
	g.Go(func() error {
		t, err := l.Load(gctx, domain.TableRequestLog, requestPath)
		if err != nil {
			return err
		}
		in.RequestLog = t
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &in, nil
}

// readRows dispatches on the file extension.
func (l *Loader) readRows(path string) ([]string, [][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return l.readExcel(path)
	default:
		return l.readCSV(path)
	}
}

// readCSV reads the whole file, tolerating ragged records and a UTF-8 BOM.
func (l *Loader) readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s: file has no header row", path)
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	return trimHeader(header), records[1:], nil
}

// readExcel reads the first sheet of a workbook through excelize.
func (l *Loader) readExcel(path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s: sheet %s has no header row", path, sheets[0])
	}
	return trimHeader(rows[0]), rows[1:], nil
}

// trimHeader removes stray whitespace around column names.
func trimHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// missingColumns returns the required names absent from header, sorted for
// stable error messages.
func missingColumns(header, required []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, c := range required {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	sort.Strings(missing)
	return missing
}
