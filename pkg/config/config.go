// Package config provides configuration loading and management for fracturemask.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"fracturemask/pkg/dataset"
	"fracturemask/pkg/faults"
	"fracturemask/pkg/mask"
	"fracturemask/pkg/threshold"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Dataset location and annotation lookup
	Dataset struct {
		// Root is the dataset directory (FracAtlas layout)
		Root string `yaml:"root"`

		// Annotations is the COCO JSON path relative to Root
		Annotations string `yaml:"annotations"`

		// Images is the image directory relative to Root
		Images string `yaml:"images"`

		// MatchField selects which annotation field is compared with the image id
		MatchField string `yaml:"matchField"`
	} `yaml:"dataset"`

	// Canonical window parameters
	Canonical struct {
		// Side is the side length of the top-left square crop
		Side int `yaml:"side"`

		// Channel is the RGB channel used as intensity
		Channel int `yaml:"channel"`
	} `yaml:"canonical"`

	// Transform parameters
	Transform struct {
		// Scales is the number of scales including the low-pass scale
		Scales int `yaml:"scales"`

		// Angles is the number of wedges at the coarsest directional scale
		Angles int `yaml:"angles"`

		// Workers bounds concurrent per-leaf work
		Workers int `yaml:"workers"`
	} `yaml:"transform"`

	// Coefficient thresholding
	Threshold struct {
		// Mode is "hard" or "soft"
		Mode string `yaml:"mode"`

		// LowerPercentile selects t_min over all coefficient magnitudes
		LowerPercentile float64 `yaml:"lowerPercentile"`

		// UpperPercentile selects t_max; 0 leaves it unbounded
		UpperPercentile float64 `yaml:"upperPercentile"`
	} `yaml:"threshold"`

	// Reconstruction binarization
	Binarize struct {
		// Percentile of reconstructed intensities used as the cut
		Percentile float64 `yaml:"percentile"`
	} `yaml:"binarize"`

	// Output parameters
	Output struct {
		// SaveIntermediaryResults determines whether to save intermediary processing results
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// IntermediaryDir is where intermediary images are written
		IntermediaryDir string `yaml:"intermediaryDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Dataset.Root = "FracAtlas"
	cfg.Dataset.Annotations = filepath.Join("Annotations", "COCO JSON", "COCO_fracture_masks.json")
	cfg.Dataset.Images = filepath.Join("images", "Fractured")
	cfg.Dataset.MatchField = string(dataset.MatchImageID)

	cfg.Canonical.Side = mask.DefaultSide
	cfg.Canonical.Channel = 0

	cfg.Transform.Scales = 4
	cfg.Transform.Angles = 8
	cfg.Transform.Workers = runtime.NumCPU()

	cfg.Threshold.Mode = string(threshold.Soft)
	cfg.Threshold.LowerPercentile = 80
	cfg.Threshold.UpperPercentile = 0

	cfg.Binarize.Percentile = 95

	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.IntermediaryDir = "intermediary_results"
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks value ranges that the YAML decoder cannot enforce
func (c *Config) Validate() error {
	if _, err := threshold.ParseMode(c.Threshold.Mode); err != nil {
		return err
	}
	switch dataset.MatchField(c.Dataset.MatchField) {
	case dataset.MatchImageID, dataset.MatchAnnotationID:
	default:
		return faults.InvalidArgument("dataset.matchField %q", c.Dataset.MatchField)
	}
	if c.Canonical.Side <= 0 {
		return faults.InvalidArgument("canonical.side %d must be positive", c.Canonical.Side)
	}
	if c.Canonical.Channel < 0 || c.Canonical.Channel > 2 {
		return faults.InvalidArgument("canonical.channel %d outside 0..2", c.Canonical.Channel)
	}
	if c.Transform.Scales < 1 {
		return faults.InvalidArgument("transform.scales %d must be at least 1", c.Transform.Scales)
	}
	for name, p := range map[string]float64{
		"threshold.lowerPercentile": c.Threshold.LowerPercentile,
		"threshold.upperPercentile": c.Threshold.UpperPercentile,
		"binarize.percentile":       c.Binarize.Percentile,
	} {
		if p < 0 || p > 100 {
			return faults.InvalidArgument("%s %v outside [0, 100]", name, p)
		}
	}
	return nil
}

// AnnotationsPath returns the full path of the COCO JSON file
func (c *Config) AnnotationsPath() string {
	return filepath.Join(c.Dataset.Root, c.Dataset.Annotations)
}

// ImagePath returns the full path of an image file
func (c *Config) ImagePath(filename string) string {
	return filepath.Join(c.Dataset.Root, c.Dataset.Images, filename)
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
