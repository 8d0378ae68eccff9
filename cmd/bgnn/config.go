package main

import (
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/bgnn/bgnn"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DataConfig points at the input files. Paths are relative to the config file.
type DataConfig struct {
	// Features is a numeric CSV with one row per node.
	Features string `yaml:"features"`
	// Targets is a CSV with one row per node: regression targets or class indices.
	Targets string `yaml:"targets"`
	// Edges is a CSV of "src,dst" node index pairs.
	Edges string `yaml:"edges"`
	// Masks is a YAML file with train, val and test node index lists.
	Masks string `yaml:"masks"`

	// Header skips the first line of every CSV file.
	Header bool `yaml:"header"`

	Undirected bool `yaml:"undirected"`
	SelfLoops  bool `yaml:"self_loops"`

	// CategoricalFeatures are feature column indices holding category codes.
	CategoricalFeatures []int `yaml:"categorical_features"`
}

// PreprocessingConfig selects the feature transforms applied to the network input.
type PreprocessingConfig struct {
	ReplaceNA bool `yaml:"replace_na"`
	// Normalize is "", "minmax" or "standard".
	Normalize string `yaml:"normalize"`
	// EncodeCategorical target-encodes the categorical columns for the network
	// while the trees keep the raw codes.
	EncodeCategorical bool `yaml:"encode_categorical"`
}

// NetworkConfig describes the GCN.
type NetworkConfig struct {
	HiddenDim int     `yaml:"hidden_dim"`
	Dropout   float64 `yaml:"dropout"`
}

// FitSettings mirrors bgnn.FitConfig with a textual direction.
type FitSettings struct {
	NumEpochs     int    `yaml:"num_epochs"`
	Patience      int    `yaml:"patience"`
	LoggingEpochs int    `yaml:"logging_epochs"`
	MetricName    string `yaml:"metric_name"`
	Direction     string `yaml:"direction"`
}

// OutputConfig names the files written after training. Empty paths are skipped.
type OutputConfig struct {
	History string `yaml:"history"`
	Plot    string `yaml:"plot"`
	Metrics string `yaml:"metrics"`
}

// RunConfig is the YAML document read by "bgnn fit".
type RunConfig struct {
	Data          DataConfig          `yaml:"data"`
	Preprocessing PreprocessingConfig `yaml:"preprocessing"`
	Model         bgnn.Config         `yaml:"model"`
	Network       NetworkConfig       `yaml:"network"`
	Fit           FitSettings         `yaml:"fit"`
	Output        OutputConfig        `yaml:"output"`

	dir string
}

// DefaultRunConfig returns the configuration written by "bgnn init".
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Data: DataConfig{
			Features:   "features.csv",
			Targets:    "targets.csv",
			Edges:      "edges.csv",
			Masks:      "masks.yaml",
			Header:     true,
			Undirected: true,
			SelfLoops:  true,
		},
		Preprocessing: PreprocessingConfig{ReplaceNA: true, Normalize: "minmax", EncodeCategorical: true},
		Model:         bgnn.DefaultConfig(),
		Network:       NetworkConfig{HiddenDim: 64},
		Fit:           FitSettings{NumEpochs: 200, Patience: 10, LoggingEpochs: 1, MetricName: bgnn.MetricLoss, Direction: "auto"},
		Output:        OutputConfig{History: "history.json"},
	}
}

// LoadRunConfig reads path over DefaultRunConfig and validates the result.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg := DefaultRunConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.dir = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that are not validated by the library.
func (c *RunConfig) Validate() error {
	for name, path := range map[string]string{
		"data.features": c.Data.Features,
		"data.targets":  c.Data.Targets,
		"data.edges":    c.Data.Edges,
		"data.masks":    c.Data.Masks,
	} {
		if path == "" {
			return errors.NewValidationError(name, "is required", path)
		}
	}
	switch c.Preprocessing.Normalize {
	case "", "minmax", "standard":
	default:
		return errors.NewValidationError("preprocessing.normalize", "must be minmax, standard or empty", c.Preprocessing.Normalize)
	}
	if c.Network.HiddenDim <= 0 {
		return errors.NewValidationError("network.hidden_dim", "must be positive", c.Network.HiddenDim)
	}
	if _, err := bgnn.ParseDirection(c.Fit.Direction); err != nil {
		return err
	}
	return c.Model.Validate()
}

// resolve returns path relative to the config file directory.
func (c *RunConfig) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

func (c *RunConfig) fitConfig() bgnn.FitConfig {
	direction, _ := bgnn.ParseDirection(c.Fit.Direction)
	return bgnn.FitConfig{
		NumEpochs:     c.Fit.NumEpochs,
		Patience:      c.Fit.Patience,
		LoggingEpochs: c.Fit.LoggingEpochs,
		MetricName:    c.Fit.MetricName,
		Direction:     direction,
	}
}

// writeDefaultRunConfig writes DefaultRunConfig to path, creating its directory.
func writeDefaultRunConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	data, err := yaml.Marshal(DefaultRunConfig())
	if err != nil {
		return errors.Wrap(err, "encode default config")
	}
	return os.WriteFile(path, data, 0o644)
}
