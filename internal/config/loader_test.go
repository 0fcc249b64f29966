package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	return path
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadWithFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "fastembed", cfg.Embeddings.Provider)
	assert.Equal(t, "BAAI/bge-small-en-v1.5", cfg.Embeddings.Model)
	assert.InDelta(t, 2.5, cfg.Segmenter.GapMultiplier, 1e-9)
	assert.InDelta(t, 0.4, cfg.Scoring.KeywordWeight, 1e-9)
	assert.InDelta(t, 0.6, cfg.Scoring.SemanticWeight, 1e-9)
	assert.InDelta(t, 0.35, cfg.Similarity.Floor, 1e-9)
	assert.Equal(t, 4, cfg.Engine.Workers)
}

func TestLoadWithFile_YAMLValues(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 7070
logging:
  level: debug
  format: console
segmenter:
  gap_multiplier: 3.0
scoring:
  keyword_weight: 0.5
  semantic_weight: 0.5
similarity:
  floor: 0.2
  max_results: 5
`, 0600)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.InDelta(t, 3.0, cfg.Segmenter.GapMultiplier, 1e-9)
	assert.InDelta(t, 0.5, cfg.Scoring.KeywordWeight, 1e-9)
	assert.InDelta(t, 0.2, cfg.Similarity.Floor, 1e-9)
	assert.Equal(t, 5, cfg.Similarity.MaxResults)

	// Unset fields still get defaults.
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 4, cfg.Engine.Workers)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 7070\n", 0600)

	t.Setenv("SERVER_PORT", "8123")
	t.Setenv("SEGMENTER_GAP_MULTIPLIER", "4.5")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8123, cfg.Server.Port)
	assert.InDelta(t, 4.5, cfg.Segmenter.GapMultiplier, 1e-9)
}

func TestLoadWithFile_RejectsInsecurePermissions(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 7070\n", 0644)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permissions")
}

func TestLoadWithFile_ReadOnlyPermitted(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 7070\n", 0400)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadWithFile_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [unclosed", 0600)

	_, err := LoadWithFile(path)
	assert.Error(t, err)
}

func TestLoadWithFile_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "bad log level",
			yaml:    "logging:\n  level: noisy\n",
			wantErr: "log level",
		},
		{
			name:    "bad port",
			yaml:    "server:\n  port: 99999\n",
			wantErr: "port",
		},
		{
			name:    "negative scoring weight",
			yaml:    "scoring:\n  keyword_weight: -1\n  semantic_weight: 1\n",
			wantErr: "scoring",
		},
		{
			name:    "similarity floor out of range",
			yaml:    "similarity:\n  floor: 2\n",
			wantErr: "similarity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.yaml, 0600)
			_, err := LoadWithFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_Defaults(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)
	assert.NoError(t, cfg.Validate())
}
