package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, float64(3), cfg.Pipeline.ZThreshold)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = -1 }},
		{name: "zero read timeout", mutate: func(c *Config) { c.Server.ReadTimeout = 0 }},
		{name: "zero z threshold", mutate: func(c *Config) { c.Pipeline.ZThreshold = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestMergeConfigsEnvWins(t *testing.T) {
	file := *Default()
	file.Server.Port = 9999
	env := Config{}
	env.Server.Port = 8081

	merged := mergeConfigs(file, env)
	assert.Equal(t, 8081, merged.Server.Port)
	// unset env fields fall back to file values
	assert.Equal(t, file.Server.ReadTimeout, merged.Server.ReadTimeout)
}

func TestNewPathsResolvesRelative(t *testing.T) {
	tmp := t.TempDir()
	p, err := NewPaths(PathsConfig{
		DataDir:    filepath.Join(tmp, "data"),
		ReportsDir: "reports",
		LogsDir:    filepath.Join(tmp, "logs"),
	})
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(p.ReportsDir))
	assert.Equal(t, filepath.Join(tmp, "data"), p.DataDir)
}

func TestEnsureDirectories(t *testing.T) {
	tmp := t.TempDir()
	p, err := NewPaths(PathsConfig{
		DataDir:    filepath.Join(tmp, "data"),
		ReportsDir: filepath.Join(tmp, "data", "reports"),
		LogsDir:    filepath.Join(tmp, "logs"),
	})
	require.NoError(t, err)
	require.NoError(t, p.EnsureDirectories())

	assert.DirExists(t, p.ReportsDir)
	assert.Equal(t, filepath.Join(tmp, "data", "reports", "out.csv"), p.ReportPath("out.csv"))
}
