// Package config implements training configuration
// surface: a YAML document describing the optimizer, learning-rate
// schedule, and data-loader hookup for a training run, loaded with
// gopkg.in/yaml.v3 in the style of similar robot/scene
// configuration files.
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// OptimizerConfig selects SGD or Adam and its hyperparameters.
type OptimizerConfig struct {
	Kind        string  `yaml:"kind"` // "sgd" or "adam"
	Momentum    float32 `yaml:"momentum,omitempty"`
	WeightDecay float32 `yaml:"weight_decay,omitempty"`
	Beta1       float32 `yaml:"beta1,omitempty"`
	Beta2       float32 `yaml:"beta2,omitempty"`
}

// ScheduleConfig mirrors learn.Schedule, loaded from YAML.
type ScheduleConfig struct {
	Kind  string  `yaml:"kind"` // constant, step, inverse, exponential, polynomial, sigmoid
	Base  float32 `yaml:"base"`
	Gamma float32 `yaml:"gamma,omitempty"`
	Step  int     `yaml:"step,omitempty"`
	Power float32 `yaml:"power,omitempty"`
}

// DataConfig describes the external data-loader hookup of 
// ("init(type, network, paths...)").
type DataConfig struct {
	Type  string   `yaml:"type"` // mnist, cifar10, list-classification, list-regression, list-detection
	Paths []string `yaml:"paths"`
	Normalize *bool `yaml:"normalize,omitempty"` // default true: (pixel-127.5)/127.5
}

// TrainConfig is the top-level document loaded by LoadTrainConfig.
type TrainConfig struct {
	BatchSize int             `yaml:"batch_size"`
	Epochs    int             `yaml:"epochs"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Train     DataConfig      `yaml:"train"`
	Valid     DataConfig      `yaml:"valid,omitempty"`
	Checkpoint string         `yaml:"checkpoint,omitempty"`
	CheckpointEvery int       `yaml:"checkpoint_every,omitempty"`
}

// LoadTrainConfig reads and parses a TrainConfig document from path.
func LoadTrainConfig(path string) (*TrainConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()
	return ParseTrainConfig(f)
}

// ParseTrainConfig reads and parses a TrainConfig document from r.
func ParseTrainConfig(r io.Reader) (*TrainConfig, error) {
	var cfg TrainConfig
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode train config: %w", err)
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("config: batch_size must be positive, got %d", cfg.BatchSize)
	}
	return &cfg, nil
}

// NormalizePixels reports whether the configured loader should apply
// the default (pixel-127.5)/127.5 normalization.
func (d DataConfig) NormalizePixels() bool {
	if d.Normalize == nil {
		return true
	}
	return *d.Normalize
}
