package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/cratescribe/internal/errortypes"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, DefaultSQLitePath, cfg.Store.SQLitePath)
	assert.Equal(t, "openai", cfg.Describer.Provider)
	assert.Equal(t, 1000, cfg.Describer.MaxResponseTokens)
	assert.Equal(t, 0.7, cfg.Describer.Temperature)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Tokens.DefaultModel)
	assert.Equal(t, 4096, cfg.Tokens.DefaultCeiling)
	assert.Equal(t, 10, cfg.Crate.MaxFilesToDescribe)
	assert.Equal(t, "./results", cfg.Output.Directory)
	assert.True(t, cfg.Output.SaveIntermediateResults)
	assert.NoError(t, cfg.Validate())
}

func TestDescriberTimeout(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{name: "default when empty", raw: "", want: 30 * time.Second},
		{name: "explicit", raw: "45s", want: 45 * time.Second},
		{name: "garbage", raw: "soon", wantErr: true},
		{name: "zero", raw: "0s", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			cfg.Describer.Timeout = tt.raw
			got, err := cfg.DescriberTimeout()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := NewConfig()
	cfg.Describer.Temperature = 3
	assert.True(t, errortypes.IsConfigError(cfg.Validate()))

	cfg = NewConfig()
	cfg.Tokens.ContextWindows = map[string]int{"gpt-4": 0}
	assert.True(t, errortypes.IsConfigError(cfg.Validate()))

	cfg = NewConfig()
	cfg.Describer.Timeout = "later"
	assert.True(t, errortypes.IsConfigError(cfg.Validate()))
}

func TestSaveToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cratescribe.json")

	cfg := NewConfig()
	cfg.Describer.ModelID = "gpt-4"
	require.NoError(t, cfg.SaveToFile(path))
	assert.Equal(t, path, cfg.GetConfigPath())
	assert.FileExists(t, path)
}
