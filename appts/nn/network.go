// Package nn implements the small dense network behind the appointments
// model, with an explicit forward/backward pass over gonum matrices and an
// Adam optimizer. The network maps (normalised age, condition flags, noise)
// to a bounded output vector; everything above it (output transform, losses)
// differentiates analytically and hands d(loss)/d(output) to Backward.
package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Activation identifies a layer's elementwise nonlinearity.
type Activation string

const (
	ActivationReLU Activation = "relu"
	ActivationTanh Activation = "tanh"
)

type layer struct {
	weights    *mat.Dense // inputs x outputs
	biases     []float64
	activation Activation
}

// Network is a fully-connected feed-forward network. The first input column
// is an age, normalised inside the network with fixed statistics captured at
// construction, so that callers always feed raw ages.
type Network struct {
	ageMean     float64
	ageVariance float64
	layers      []*layer
}

// New builds a network with the given hidden layer sizes (all ReLU) and a
// tanh output layer, Glorot-uniform initialised from rng with zero biases.
// ageMean and ageVariance are the population statistics used to normalise the
// first input column.
func New(inputs int, hidden []int, outputs int, ageMean, ageVariance float64, rng *rand.Rand) *Network {
	n := &Network{ageMean: ageMean, ageVariance: ageVariance}
	previous := inputs
	for _, size := range hidden {
		n.layers = append(n.layers, newLayer(previous, size, ActivationReLU, rng))
		previous = size
	}
	n.layers = append(n.layers, newLayer(previous, outputs, ActivationTanh, rng))
	return n
}

func newLayer(inputs, outputs int, activation Activation, rng *rand.Rand) *layer {
	limit := math.Sqrt(6.0 / float64(inputs+outputs))
	weights := mat.NewDense(inputs, outputs, nil)
	for i := 0; i < inputs; i++ {
		for j := 0; j < outputs; j++ {
			weights.Set(i, j, (rng.Float64()*2.0-1.0)*limit)
		}
	}
	return &layer{
		weights:    weights,
		biases:     make([]float64, outputs),
		activation: activation,
	}
}

// Inputs returns the number of input features the network expects.
func (n *Network) Inputs() int {
	inputs, _ := n.layers[0].weights.Dims()
	return inputs
}

// Outputs returns the length of the network's output vector.
func (n *Network) Outputs() int {
	_, outputs := n.layers[len(n.layers)-1].weights.Dims()
	return outputs
}

// Tape records the activations of one forward pass, as needed to backpropagate
// a loss gradient through it.
type Tape struct {
	inputs      *mat.Dense
	activations []*mat.Dense // post-activation output per layer
}

// Output returns the final layer's activations, one row per example.
func (t *Tape) Output() *mat.Dense {
	return t.activations[len(t.activations)-1]
}

// Forward evaluates the network on a batch. ages, conditions and noise must
// all describe the same number of examples; conditions rows must match the
// condition input width and noise rows the noise input width, so that
// 1 + len(conditions[i]) + len(noise[i]) equals Inputs().
func (n *Network) Forward(ages []float64, conditions [][]float64, noise [][]float64) *Tape {
	batch := len(ages)
	inputs := mat.NewDense(batch, n.Inputs(), nil)
	std := math.Sqrt(n.ageVariance)
	if std == 0 {
		std = 1.0
	}
	for i := 0; i < batch; i++ {
		inputs.Set(i, 0, (ages[i]-n.ageMean)/std)
		for j, flag := range conditions[i] {
			inputs.Set(i, 1+j, flag)
		}
		for j, v := range noise[i] {
			inputs.Set(i, 1+len(conditions[i])+j, v)
		}
	}

	tape := &Tape{inputs: inputs}
	current := inputs
	for _, l := range n.layers {
		batch, _ := current.Dims()
		_, outputs := l.weights.Dims()
		z := mat.NewDense(batch, outputs, nil)
		z.Mul(current, l.weights)
		for i := 0; i < batch; i++ {
			for j := 0; j < outputs; j++ {
				z.Set(i, j, activate(l.activation, z.At(i, j)+l.biases[j]))
			}
		}
		tape.activations = append(tape.activations, z)
		current = z
	}
	return tape
}

func activate(a Activation, x float64) float64 {
	switch a {
	case ActivationReLU:
		return math.Max(0, x)
	case ActivationTanh:
		return math.Tanh(x)
	}
	panic(fmt.Sprintf("unknown activation %q", a))
}

// activationGradient returns d(act)/d(pre-activation) expressed in terms of
// the post-activation value, which is all the tape retains.
func activationGradient(a Activation, output float64) float64 {
	switch a {
	case ActivationReLU:
		if output > 0 {
			return 1.0
		}
		return 0.0
	case ActivationTanh:
		return 1.0 - output*output
	}
	panic(fmt.Sprintf("unknown activation %q", a))
}

// Gradients holds d(loss)/d(parameter) for every layer, in layer order.
type Gradients struct {
	weights []*mat.Dense
	biases  [][]float64
}

// Backward backpropagates d(loss)/d(output) through the forward pass recorded
// on tape and returns the parameter gradients. It does not modify the network.
func (n *Network) Backward(tape *Tape, outputGradient *mat.Dense) *Gradients {
	grads := &Gradients{
		weights: make([]*mat.Dense, len(n.layers)),
		biases:  make([][]float64, len(n.layers)),
	}

	delta := mat.DenseCopyOf(outputGradient)
	for li := len(n.layers) - 1; li >= 0; li-- {
		l := n.layers[li]
		activations := tape.activations[li]
		batch, outputs := activations.Dims()

		// delta becomes d(loss)/d(pre-activation) for this layer.
		for i := 0; i < batch; i++ {
			for j := 0; j < outputs; j++ {
				delta.Set(i, j, delta.At(i, j)*activationGradient(l.activation, activations.At(i, j)))
			}
		}

		previous := tape.inputs
		if li > 0 {
			previous = tape.activations[li-1]
		}
		inputs, _ := l.weights.Dims()
		dw := mat.NewDense(inputs, outputs, nil)
		dw.Mul(previous.T(), delta)
		grads.weights[li] = dw

		db := make([]float64, outputs)
		for i := 0; i < batch; i++ {
			for j := 0; j < outputs; j++ {
				db[j] += delta.At(i, j)
			}
		}
		grads.biases[li] = db

		if li > 0 {
			next := mat.NewDense(batch, inputs, nil)
			next.Mul(delta, l.weights.T())
			delta = next
		}
	}
	return grads
}
