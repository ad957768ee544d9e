package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/weave/pkg/weave/config"
)

func TestAccessors(t *testing.T) {
	cfg := config.New(map[string]any{
		"name":    "pipeline",
		"buffer":  16,
		"metrics": true,
		"timeout": "250ms",
	})

	assert.True(t, cfg.Has("name"))
	assert.False(t, cfg.Has("missing"))

	assert.Equal(t, "pipeline", cfg.String("name", "default"))
	assert.Equal(t, "default", cfg.String("missing", "default"))
	assert.Equal(t, "default", cfg.String("buffer", "default"))

	assert.Equal(t, 16, cfg.Int("buffer", 0))
	assert.Equal(t, 4, cfg.Int("missing", 4))

	assert.True(t, cfg.Bool("metrics", false))
	assert.False(t, cfg.Bool("missing", false))

	assert.Equal(t, 250*time.Millisecond, cfg.Duration("timeout", time.Second))
	assert.Equal(t, time.Second, cfg.Duration("missing", time.Second))
}

func TestInt_Conversions(t *testing.T) {
	cfg := config.New(map[string]any{
		"whole":      float64(8), // JSON numbers decode as float64
		"fractional": 8.5,
		"wide":       int64(9),
	})

	assert.Equal(t, 8, cfg.Int("whole", 0))
	assert.Equal(t, 0, cfg.Int("fractional", 0))
	assert.Equal(t, 9, cfg.Int("wide", 0))
}

func TestDuration_Numbers(t *testing.T) {
	cfg := config.New(map[string]any{
		"seconds": 3,
		"bad":     "not a duration",
	})

	assert.Equal(t, 3*time.Second, cfg.Duration("seconds", 0))
	assert.Equal(t, time.Minute, cfg.Duration("bad", time.Minute))
}

func TestNew_NilMap(t *testing.T) {
	cfg := config.New(nil)
	assert.Equal(t, "x", cfg.String("anything", "x"))
}

func TestFromYAML(t *testing.T) {
	cfg, err := config.FromYAML([]byte("buffer: 8\nmetrics: true\n"))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Int("buffer", 0))
	assert.True(t, cfg.Bool("metrics", false))
}

func TestFromYAML_Invalid(t *testing.T) {
	_, err := config.FromYAML([]byte(":\n  - ]["))
	assert.Error(t, err)
}

func TestFromJSON(t *testing.T) {
	cfg, err := config.FromJSON([]byte(`{"buffer": 8, "name": "p"}`))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Int("buffer", 0))
	assert.Equal(t, "p", cfg.String("name", ""))
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "weave.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("buffer: 4\n"), 0o644))
	cfg, err := config.FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Int("buffer", 0))

	jsonPath := filepath.Join(dir, "weave.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"buffer": 2}`), 0o644))
	cfg, err = config.FromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Int("buffer", 0))

	_, err = config.FromFile(filepath.Join(dir, "weave.toml"))
	assert.Error(t, err)

	_, err = config.FromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
