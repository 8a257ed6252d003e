// Command preprocessor runs the full preprocessing pipeline once from the
// command line: load the three input files, clean, reshape, merge, derive
// and export the combined dataset as CSV reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tuesdata/internal/config"
	"tuesdata/internal/exporter"
	"tuesdata/internal/infrastructure"
	"tuesdata/internal/loader"
	"tuesdata/internal/operations"
)

func main() {
	tabdb := flag.String("tabdb", "tabdb.csv", "song catalog file (csv or xlsx)")
	playdb := flag.String("playdb", "playdb.csv", "play log file (csv or xlsx)")
	requestdb := flag.String("requestdb", "requestdb.csv", "request log file (csv or xlsx)")
	outDir := flag.String("out", "", "output directory for CSV reports (defaults to the configured reports dir)")
	flag.Parse()

	if err := run(*tabdb, *playdb, *requestdb, *outDir); err != nil {
		slog.Error("preprocessing failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(tabdb, playdb, requestdb, outDir string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if outDir != "" {
		cfg.Paths.ReportsDir = outDir
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		return fmt.Errorf("initialize paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	l := loader.NewLoader(logger)
	registry, err := operations.NewPipelineRegistry(l, exporter.NewCSVWriter(paths, logger), logger)
	if err != nil {
		return fmt.Errorf("build pipeline registry: %w", err)
	}
	manager := operations.NewManager(registry, nil, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.OperationTimeout)
	defer cancel()

	state := manager.Start(operations.Request{
		CatalogPath:    resolve(paths, tabdb),
		PlayLogPath:    resolve(paths, playdb),
		RequestLogPath: resolve(paths, requestdb),
	})

	if err := manager.Run(ctx, state); err != nil {
		return err
	}

	snap := state.Snapshot()
	logger.Info("preprocessing completed",
		slog.String("operation_id", snap.ID),
		slog.Int("combined_rows", snap.Rows),
		slog.String("reports_dir", paths.ReportsDir))
	return nil
}

func resolve(paths *config.Paths, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return paths.DataPath(path)
}
