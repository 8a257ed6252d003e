package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths resolves the directories the application reads and writes. All
// relative paths are anchored at the working directory so the binaries
// behave the same whether run from a checkout or an install location.
type Paths struct {
	DataDir    string
	ReportsDir string
	LogsDir    string
}

// NewPaths builds a Paths from configuration, making relative directories
// absolute.
func NewPaths(cfg PathsConfig) (*Paths, error) {
	p := &Paths{
		DataDir:    cfg.DataDir,
		ReportsDir: cfg.ReportsDir,
		LogsDir:    cfg.LogsDir,
	}
	for _, dir := range []*string{&p.DataDir, &p.ReportsDir, &p.LogsDir} {
		if !filepath.IsAbs(*dir) {
			abs, err := filepath.Abs(*dir)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve path %q: %w", *dir, err)
			}
			*dir = abs
		}
	}
	return p, nil
}

// EnsureDirectories creates every managed directory that does not exist yet.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ReportPath returns the absolute path of an exported report file.
func (p *Paths) ReportPath(name string) string {
	return filepath.Join(p.ReportsDir, name)
}

// DataPath returns the absolute path of a file under the data directory.
func (p *Paths) DataPath(name string) string {
	return filepath.Join(p.DataDir, name)
}
