package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "psychcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.Design.MinExposure)
	assert.Equal(t, 0.15, cfg.Design.CVTolerance)
	assert.Equal(t, 200, cfg.Estimation.MaxIterations)
	assert.Equal(t, 0.7, cfg.Estimation.DefaultLoading)
	assert.Equal(t, 3.0, cfg.Estimation.ThetaBound)
	assert.NoError(t, cfg.Validate())
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
design:
  min_exposure: 4
estimation:
  max_iterations: 500
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Design.MinExposure)
	assert.Equal(t, 500, cfg.Estimation.MaxIterations)
	// untouched fields keep their defaults
	assert.Equal(t, 0.15, cfg.Design.CVTolerance)
	assert.Equal(t, 0.5, cfg.Estimation.FallbackSE)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "negative tolerance", content: "design:\n  cv_tolerance: -0.2\n"},
		{name: "oversized default loading", content: "estimation:\n  default_loading: 2.0\n"},
		{name: "negative prior weight", content: "estimation:\n  prior_weight: -1.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "design: [not a map"))
	assert.Error(t, err)
}
