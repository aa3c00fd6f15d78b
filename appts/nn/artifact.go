package nn

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

// artifact is the persisted form of a trained network. Written once by the
// trainer after the final epoch, read-only afterwards; there are no partial
// checkpoints.
type artifact struct {
	AgeMean     float64         `json:"age_mean"`
	AgeVariance float64         `json:"age_variance"`
	Layers      []layerArtifact `json:"layers"`
}

type layerArtifact struct {
	Inputs     int         `json:"inputs"`
	Outputs    int         `json:"outputs"`
	Activation Activation  `json:"activation"`
	Weights    [][]float64 `json:"weights"`
	Biases     []float64   `json:"biases"`
}

// Save writes the network's parameter state to path as JSON.
func (n *Network) Save(path string) error {
	a := artifact{AgeMean: n.ageMean, AgeVariance: n.ageVariance}
	for _, l := range n.layers {
		inputs, outputs := l.weights.Dims()
		la := layerArtifact{
			Inputs:     inputs,
			Outputs:    outputs,
			Activation: l.activation,
			Biases:     append([]float64{}, l.biases...),
		}
		for i := 0; i < inputs; i++ {
			la.Weights = append(la.Weights, append([]float64{}, l.weights.RawRowView(i)...))
		}
		a.Layers = append(a.Layers, la)
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("model: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	return nil
}

// Load reads a network previously written by Save.
func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("model: unmarshal %s: %w", path, err)
	}
	if len(a.Layers) == 0 {
		return nil, fmt.Errorf("model: %s has no layers", path)
	}
	n := &Network{ageMean: a.AgeMean, ageVariance: a.AgeVariance}
	for li, la := range a.Layers {
		if len(la.Weights) != la.Inputs || len(la.Biases) != la.Outputs {
			return nil, fmt.Errorf("model: %s: layer %d shape mismatch", path, li)
		}
		weights := mat.NewDense(la.Inputs, la.Outputs, nil)
		for i, row := range la.Weights {
			if len(row) != la.Outputs {
				return nil, fmt.Errorf("model: %s: layer %d shape mismatch", path, li)
			}
			for j, w := range row {
				weights.Set(i, j, w)
			}
		}
		n.layers = append(n.layers, &layer{
			weights:    weights,
			biases:     append([]float64{}, la.Biases...),
			activation: la.Activation,
		})
	}
	return n, nil
}
