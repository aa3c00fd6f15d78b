package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam is a first-order adaptive gradient optimizer bound to one network's
// parameters. Moment estimates are kept per parameter; the step counter is
// shared across all parameters, advancing once per Apply.
type Adam struct {
	network      *Network
	learningRate float64
	beta1, beta2 float64
	epsilon      float64
	step         int

	weightM, weightV []*mat.Dense
	biasM, biasV     [][]float64
}

// NewAdam creates an Adam optimizer for network with the given learning rate
// and conventional decay parameters (0.9, 0.999, 1e-7).
func NewAdam(network *Network, learningRate float64) *Adam {
	a := &Adam{
		network:      network,
		learningRate: learningRate,
		beta1:        0.9,
		beta2:        0.999,
		epsilon:      1e-7,
	}
	for _, l := range network.layers {
		inputs, outputs := l.weights.Dims()
		a.weightM = append(a.weightM, mat.NewDense(inputs, outputs, nil))
		a.weightV = append(a.weightV, mat.NewDense(inputs, outputs, nil))
		a.biasM = append(a.biasM, make([]float64, outputs))
		a.biasV = append(a.biasV, make([]float64, outputs))
	}
	return a
}

// Apply performs one optimizer step, updating the network's parameters in
// place from the given gradients.
func (a *Adam) Apply(grads *Gradients) {
	a.step++
	correction1 := 1.0 - math.Pow(a.beta1, float64(a.step))
	correction2 := 1.0 - math.Pow(a.beta2, float64(a.step))

	for li, l := range a.network.layers {
		inputs, outputs := l.weights.Dims()
		for i := 0; i < inputs; i++ {
			for j := 0; j < outputs; j++ {
				g := grads.weights[li].At(i, j)
				m := a.beta1*a.weightM[li].At(i, j) + (1.0-a.beta1)*g
				v := a.beta2*a.weightV[li].At(i, j) + (1.0-a.beta2)*g*g
				a.weightM[li].Set(i, j, m)
				a.weightV[li].Set(i, j, v)
				update := a.learningRate * (m / correction1) / (math.Sqrt(v/correction2) + a.epsilon)
				l.weights.Set(i, j, l.weights.At(i, j)-update)
			}
		}
		for j := 0; j < outputs; j++ {
			g := grads.biases[li][j]
			m := a.beta1*a.biasM[li][j] + (1.0-a.beta1)*g
			v := a.beta2*a.biasV[li][j] + (1.0-a.beta2)*g*g
			a.biasM[li][j] = m
			a.biasV[li][j] = v
			l.biases[j] -= a.learningRate * (m / correction1) / (math.Sqrt(v/correction2) + a.epsilon)
		}
	}
}
