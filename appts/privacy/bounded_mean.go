// Package privacy computes differentially private aggregate statistics over
// per-individual appointment predictions. The only primitive is a Laplace
// bounded mean: values are clamped to a fixed range before noise is added,
// bounding the sensitivity of the mechanism.
package privacy

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Epsilon is the per-bucket privacy-loss budget. The value is generally
// agreed to be a conservative tradeoff of privacy, see:
// https://desfontain.es/privacy/real-world-differential-privacy.html
// Use beyond demonstration would require determining a value through a
// deliberative process.
const Epsilon = 2.0

// Clamp range for annual appointment counts. Values outside the range are
// clamped by the mechanism, never rejected.
const (
	AppointmentsLowerBound = 0.0
	AppointmentsUpperBound = 40.0
)

// BoundedMean returns a differentially private mean of values under the given
// privacy budget. Every value is clamped into [lower, upper]; half the budget
// protects the count, half the sum of midpoint-centred values. An infinite
// epsilon disables the noise and returns the exact clamped mean, which is how
// tests pin down the mechanism's arithmetic.
func BoundedMean(values []float64, lower, upper, epsilon float64, src rand.Source) float64 {
	midpoint := (lower + upper) / 2.0
	sum := 0.0
	for _, v := range values {
		sum += math.Min(upper, math.Max(lower, v)) - midpoint
	}
	count := float64(len(values))

	if !math.IsInf(epsilon, 1) {
		half := epsilon / 2.0
		// Each individual moves the centred sum by at most (upper-lower)/2
		// and the count by exactly 1.
		sum += laplace((upper-lower)/2.0/half, src)
		count += laplace(1.0/half, src)
	}
	if count < 1.0 {
		count = 1.0
	}
	return midpoint + sum/count
}

func laplace(scale float64, src rand.Source) float64 {
	return distuv.Laplace{Mu: 0, Scale: scale, Src: src}.Rand()
}
