package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fracturemask/pkg/faults"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 352, cfg.Canonical.Side)
	assert.Equal(t, "soft", cfg.Threshold.Mode)
	assert.Equal(t, 80.0, cfg.Threshold.LowerPercentile)
	assert.Equal(t, "image_id", cfg.Dataset.MatchField)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join("FracAtlas", "images", "Fractured", "x.jpg"), cfg.ImagePath("x.jpg"))
	assert.Equal(t, filepath.Join("FracAtlas", "Annotations", "COCO JSON", "COCO_fracture_masks.json"), cfg.AnnotationsPath())
}

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Canonical, cfg.Canonical)
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Threshold.Mode = "hard"
	cfg.Threshold.UpperPercentile = 99.5
	cfg.Dataset.MatchField = "id"
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("binarize:\n  percentile: 90\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 90.0, cfg.Binarize.Percentile)
	assert.Equal(t, 4, cfg.Transform.Scales)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"mode":       "threshold:\n  mode: median\n",
		"percentile": "binarize:\n  percentile: 101\n",
		"side":       "canonical:\n  side: 0\n",
		"match":      "dataset:\n  matchField: name\n",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))

			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, faults.ErrInvalidArgument))
		})
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threshold: [\n"), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
