package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/cratescribe/internal/config"
	"github.com/localrivet/cratescribe/internal/errortypes"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-model", "gpt-4", "-out", "reports", "a.json", "crates/"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", opts.model)
	assert.Equal(t, "reports", opts.outDir)
	assert.Equal(t, config.DefaultConfigFilename, opts.configPath)
	assert.Equal(t, []string{"a.json", "crates/"}, opts.paths)
}

func TestParseFlags_RequiresPathsUnlessServing(t *testing.T) {
	_, err := parseFlags(nil)
	assert.ErrorIs(t, err, errNoManifests)

	opts, err := parseFlags([]string{"-mcp"})
	require.NoError(t, err)
	assert.True(t, opts.mcp)
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.NewConfig()
	applyOverrides(cfg, options{})
	assert.Empty(t, cfg.Describer.ModelID)

	applyOverrides(cfg, options{model: "gemini-1.5-pro", outDir: "out"})
	assert.Equal(t, "gemini-1.5-pro", cfg.Describer.ModelID)
	assert.Equal(t, "out", cfg.Output.Directory)
}

func TestCollectManifests(t *testing.T) {
	dir := filepath.Join("..", "..", "testdata")

	paths, err := collectManifests([]string{dir})
	require.NoError(t, err)
	assert.Contains(t, paths, filepath.Join(dir, "ocean-crate.json"))

	single := filepath.Join(dir, "minimal-crate.json")
	paths, err = collectManifests([]string{single})
	require.NoError(t, err)
	assert.Equal(t, []string{single}, paths)

	_, err = collectManifests([]string{filepath.Join(dir, "missing.json")})
	assert.True(t, errortypes.IsValidationError(err))

	_, err = collectManifests([]string{t.TempDir()})
	assert.ErrorIs(t, err, errNoManifests)
}
