package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/appointments-sim/appointments-sim/appts"
)

// TrainingOverrides is the optional YAML file tweaking training parameters
// away from their published defaults. Zero-valued fields keep the default;
// the outlier threshold in particular is exposed here because its interaction
// with small clinic counts is unvalidated.
type TrainingOverrides struct {
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	OutlierSigma float64 `yaml:"outlier_sigma"`
}

// LoadTrainingConfig returns the default training configuration, overridden
// by the YAML file at path when path is non-empty.
func LoadTrainingConfig(path string) (appts.TrainingConfig, *TrainingOverrides, error) {
	config := appts.DefaultTrainingConfig()
	overrides := &TrainingOverrides{}
	if path == "" {
		return config, overrides, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, nil, fmt.Errorf("training config: %w", err)
	}
	if err := yaml.Unmarshal(data, overrides); err != nil {
		return config, nil, fmt.Errorf("training config: parse %s: %w", path, err)
	}

	if overrides.Epochs > 0 {
		config.Epochs = overrides.Epochs
	}
	if overrides.BatchSize > 0 {
		config.BatchSize = overrides.BatchSize
	}
	if overrides.LearningRate > 0 {
		config.LearningRate = overrides.LearningRate
	}
	if overrides.OutlierSigma > 0 {
		config.OutlierSigma = overrides.OutlierSigma
	}
	return config, overrides, nil
}
